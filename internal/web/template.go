package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/button-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Button Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.pressed { color: green; font-weight: bold; }
.released { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Button Sensor{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Buttons</h2>
<table>
<tr><th>Name</th><th>Mode</th><th>State</th><th>Clicks</th><th>Repeats</th><th>Long</th></tr>
{{range .Buttons}}<tr id="btn-{{.Name}}">
<td>{{.Name}}</td><td>{{.Mode}}</td>
<td class="{{if .Pressed}}pressed{{else}}released{{end}}">{{if .Pressed}}pressed{{else}}released{{end}}</td>
<td class="clicks">{{.Counts.Clicks}}</td><td class="repeats">{{.Counts.Repeats}}</td><td class="longs">{{.Counts.LongPresses}}</td>
</tr>
{{end}}</table>
<p>Last event: <span id="last-event">{{with .LastEvent}}{{.Button}} {{.Type}} at {{.Timestamp.UTC.Format "15:04:05.000"}}{{else}}none{{end}}</span></p>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Backend}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var last = document.getElementById("last-event");
  var cells = { CLICK: "clicks", REPEAT: "repeats", LONG_PRESS: "longs" };

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/events");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(m) {
      try {
        var msg = JSON.parse(m.data);
        if (msg.type !== "button_event") return;
        var row = document.getElementById("btn-" + msg.data.name);
        var cell = row && row.querySelector("." + cells[msg.data.event]);
        if (cell) cell.textContent = parseInt(cell.textContent, 10) + 1;
        last.textContent = msg.data.name + " " + msg.data.event + " at " + msg.ts.substr(11, 12);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Live:     live,
	}
	indexTmpl.Execute(w, data)
}
