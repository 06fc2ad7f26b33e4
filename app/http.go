package app

import (
	"encoding/json"
	"fmt"
	"net/http"

	"snakearena.live/session"
)

// statsSnapshot is the /stats JSON shape, the dashboard's data source.
// Grounded on the teacher's engine.StatsSnapshot (engine/network.go
// HandleStats), trimmed to the counters a lobby-and-match server actually
// has: no per-tick bandwidth/GC figures, since there is no continuous
// physics loop running between matches.
type statsSnapshot struct {
	Version    string  `json:"version"`
	MatchState string  `json:"matchState"`
	Tick       int     `json:"tick"`
	AliveCount int     `json:"aliveCount"`
	TotalCount int     `json:"totalCount"`
	Winner     *string `json:"winner,omitempty"`
	GridWidth  int     `json:"gridWidth,omitempty"`
	GridHeight int     `json:"gridHeight,omitempty"`
}

func buildStatsSnapshot(mux *session.Multiplexer) statsSnapshot {
	st := mux.Stats()
	var winner *string
	if st.Winner != nil {
		w := st.Winner.String()
		winner = &w
	}
	return statsSnapshot{
		Version:    Version,
		MatchState: mux.MatchState(),
		Tick:       st.Tick,
		AliveCount: st.AliveCount,
		TotalCount: st.TotalCount,
		Winner:     winner,
	}
}

func statsJSON(mux *session.Multiplexer) ([]byte, error) {
	return json.Marshal(buildStatsSnapshot(mux))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := buildStatsSnapshot(s.mux)
	snap.GridWidth = s.cfg.GridWidth
	snap.GridHeight = s.cfg.GridHeight

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, dashboardHTML)
}

// dashboardHTML is adapted from the teacher's dashboard (engine/network.go
// dashboardHTML): same dark card layout and polling loop, with the card
// list swapped for match counters instead of per-connection bandwidth/GC
// figures.
const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>SnakeArena Dashboard</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
         background: #1a1a2e; color: #eee; padding: 20px; }
  h1 { background: linear-gradient(135deg, #e94560, #c23152); padding: 14px 24px;
       border-radius: 10px; margin-bottom: 24px; color: white; font-size: 22px;
       display: flex; align-items: center; justify-content: space-between; }
  h1 .dot { width: 10px; height: 10px; border-radius: 50%; background: #0f0;
            display: inline-block; margin-right: 8px; animation: pulse 2s infinite; }
  @keyframes pulse { 0%,100% { opacity:1; } 50% { opacity:0.4; } }
  .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
          gap: 14px; margin-bottom: 28px; }
  .card { background: #16213e; border-radius: 10px; padding: 18px;
          border-left: 4px solid #0f3460; transition: transform 0.15s; }
  .card:hover { transform: translateY(-2px); }
  .card .label { font-size: 11px; text-transform: uppercase; color: #888;
                 letter-spacing: 0.5px; }
  .card .value { font-size: 32px; font-weight: bold; color: #e94560; margin-top: 4px;
                 font-variant-numeric: tabular-nums; }
  .card .unit { font-size: 13px; color: #666; }
  .status-bar { font-size: 11px; color: #555; margin-top: 16px; text-align: right; }
</style>
</head>
<body>
<h1><span><span class="dot"></span>SnakeArena Server <span id="version" style="font-size:13px;font-weight:normal;color:rgba(255,255,255,0.5)"></span></span><span id="state" style="font-size:14px;font-weight:normal;color:rgba(255,255,255,0.7)"></span></h1>
<div class="grid" id="cards"></div>
<div class="status-bar" id="status">Connecting...</div>
<script>
const cardDefs = [
  {k:'matchState', label:'Match State', unit:''},
  {k:'aliveCount', label:'Snakes Alive', unit:''},
  {k:'totalCount', label:'Total Snakes', unit:''},
  {k:'tick',       label:'Tick',         unit:''},
  {k:'gridWidth',  label:'Grid Width',   unit:''},
  {k:'gridHeight', label:'Grid Height',  unit:''},
];
function render(d) {
  if (d.version) document.getElementById('version').textContent = 'v' + d.version;
  document.getElementById('state').textContent = d.matchState || '';
  let html = '';
  for (const c of cardDefs) {
    let v = d[c.k];
    if (v === undefined) v = '-';
    html += '<div class="card"><div class="label">'+c.label+'</div>'+
            '<div class="value">'+v+' <span class="unit">'+c.unit+'</span></div></div>';
  }
  if (d.winner) {
    html += '<div class="card"><div class="label">Winner</div>'+
            '<div class="value" style="font-size:16px">'+d.winner+'</div></div>';
  }
  document.getElementById('cards').innerHTML = html;
  document.getElementById('status').textContent = 'Last update: ' + new Date().toLocaleTimeString();
}
function poll() {
  fetch('/stats').then(r=>r.json()).then(render)
    .catch(e=>{ document.getElementById('status').textContent='Error: '+e; });
}
poll();
setInterval(poll, 1000);
</script>
</body>
</html>`
