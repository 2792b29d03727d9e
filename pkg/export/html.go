package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// htmlNode is a node in the page's embedded data, with its drawn box.
type htmlNode struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	Text     string            `json:"text"`
	Parent   string            `json:"parent,omitempty"`
	Pinned   bool              `json:"pinned"`
	Metadata map[string]string `json:"metadata,omitempty"`
	X        float64           `json:"x"`
	Y        float64           `json:"y"`
	W        float64           `json:"w"`
	H        float64           `json:"h"`
	Anchor   string            `json:"anchor"`
}

// htmlLink is an edge in the page's embedded data.
type htmlLink struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// Filename builds an export file name from a title:
// {title}_{YYYYMMDD}_{HHMMSS}_{gitshort}.{ext}
func Filename(title string, f Format) string {
	dateStr := time.Now().Format("20060102_150405")

	gitShort := "nogit"
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	if output, err := cmd.Output(); err == nil {
		gitShort = strings.TrimSpace(string(output))
	}

	safeName := model.KebabCase(title)
	if safeName == "" {
		safeName = "map"
	}
	return fmt.Sprintf("%s_%s_%s.%s", safeName, dateStr, gitShort, f)
}

// WriteHTML writes a self-contained page with the SVG drawing, pan and
// zoom, and a detail panel showing the clicked node.
func WriteHTML(w io.Writer, v *graph.View, res *layout.Result, opts Options) error {
	scene, _, _ := Frame(v, res, opts)

	var drawing bytes.Buffer
	if err := WriteSVG(&drawing, v, res, opts); err != nil {
		return fmt.Errorf("render svg: %w", err)
	}

	nodes := make([]htmlNode, 0, len(scene.Nodes))
	for _, box := range scene.Nodes {
		n, ok := v.Node(box.ID)
		if !ok {
			continue
		}
		nodes = append(nodes, htmlNode{
			ID:       n.ID,
			Kind:     string(n.Kind),
			Text:     n.Text,
			Parent:   n.Parent,
			Pinned:   n.IsPinned(),
			Metadata: n.Metadata,
			X:        box.Rect.Min.X,
			Y:        box.Rect.Min.Y,
			W:        box.Rect.Width(),
			H:        box.Rect.Height(),
			Anchor:   model.KebabCase(n.Summary()),
		})
	}
	links := make([]htmlLink, 0, v.EdgeCount())
	for _, e := range v.Edges() {
		links = append(links, htmlLink{ID: e.ID, Source: e.Source, Target: e.Target, Relation: string(e.Relation)})
	}

	dataJSON, err := json.Marshal(map[string]interface{}{
		"nodes": nodes,
		"links": links,
	})
	if err != nil {
		return fmt.Errorf("marshal graph data: %w", err)
	}

	title := opts.Title
	if title == "" {
		title = "Topic map"
	}
	inline := drawing.String()
	if i := strings.Index(inline, "<svg"); i > 0 {
		inline = inline[i:]
	}
	_, err = io.WriteString(w, generateHTML(title, inline, string(dataJSON), len(nodes), len(links), v.Revision()))
	return err
}

func generateHTML(title, drawing, dataJSON string, nodeCount, edgeCount int, revision uint64) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%[1]s | tmap</title>
    <style>
        :root {
            --bg: #1a1a1a;
            --bg-panel: #262626;
            --fg: #eeeeee;
            --fg-muted: #8a8a8a;
            --accent: #ffd700;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: sans-serif;
            background: var(--bg);
            color: var(--fg);
            height: 100vh;
            display: flex;
            flex-direction: column;
            overflow: hidden;
        }
        header {
            padding: 0.5rem 1rem;
            display: flex;
            justify-content: space-between;
            border-bottom: 1px solid var(--accent);
        }
        header .stats { color: var(--fg-muted); font-size: 0.85rem; }
        main { flex: 1; display: flex; min-height: 0; }
        #canvas { flex: 1; cursor: grab; overflow: hidden; }
        #canvas svg { width: 100%%; height: 100%%; }
        #detail {
            width: 320px;
            background: var(--bg-panel);
            padding: 1rem;
            overflow-y: auto;
            display: none;
        }
        #detail h2 { font-size: 1rem; margin-bottom: 0.5rem; }
        #detail .kind { color: var(--accent); font-size: 0.8rem; text-transform: uppercase; }
        #detail pre { white-space: pre-wrap; margin: 0.75rem 0; }
        #detail li { list-style: none; color: var(--fg-muted); font-size: 0.85rem; }
    </style>
</head>
<body>
    <header>
        <strong>%[1]s</strong>
        <span class="stats">%[4]d nodes · %[5]d edges · revision %[6]d · %[7]s</span>
    </header>
    <main>
        <div id="canvas">%[2]s</div>
        <aside id="detail"></aside>
    </main>
    <script>
    (function() {
        var data = %[3]s;
        var byId = {};
        data.nodes.forEach(function(n) { byId[n.id] = n; });

        var svg = document.querySelector('#canvas svg');
        var w = parseFloat(svg.getAttribute('width')), h = parseFloat(svg.getAttribute('height'));
        var view = {x: 0, y: 0, w: w, h: h};
        svg.removeAttribute('width');
        svg.removeAttribute('height');
        function apply() { svg.setAttribute('viewBox', view.x + ' ' + view.y + ' ' + view.w + ' ' + view.h); }
        apply();

        function toGraph(evt) {
            var pt = svg.createSVGPoint();
            pt.x = evt.clientX; pt.y = evt.clientY;
            return pt.matrixTransform(svg.getScreenCTM().inverse());
        }

        svg.addEventListener('wheel', function(evt) {
            evt.preventDefault();
            var p = toGraph(evt);
            var f = evt.deltaY < 0 ? 1 / 1.1 : 1.1;
            view.x = p.x - (p.x - view.x) * f;
            view.y = p.y - (p.y - view.y) * f;
            view.w *= f; view.h *= f;
            apply();
        }, {passive: false});

        var drag = null;
        svg.addEventListener('mousedown', function(evt) { drag = {p: toGraph(evt), moved: false}; });
        window.addEventListener('mouseup', function(evt) {
            if (drag && !drag.moved) { select(toGraph(evt)); }
            drag = null;
        });
        svg.addEventListener('mousemove', function(evt) {
            if (!drag) return;
            var p = toGraph(evt);
            view.x -= p.x - drag.p.x;
            view.y -= p.y - drag.p.y;
            drag.moved = true;
            apply();
        });

        function esc(s) {
            var d = document.createElement('div');
            d.textContent = s;
            return d.innerHTML;
        }

        function select(p) {
            var hit = null;
            data.nodes.forEach(function(n) {
                if (p.x >= n.x && p.x <= n.x + n.w && p.y >= n.y && p.y <= n.y + n.h) hit = n;
            });
            var panel = document.getElementById('detail');
            if (!hit) { panel.style.display = 'none'; return; }
            var rel = data.links.filter(function(l) { return l.source === hit.id || l.target === hit.id; });
            var html = '<div class="kind">' + esc(hit.kind) + (hit.pinned ? ' · pinned' : '') + '</div>';
            html += '<h2 id="' + esc(hit.anchor) + '">' + esc(hit.text.split('\n')[0] || hit.id) + '</h2>';
            html += '<pre>' + esc(hit.text) + '</pre><ul>';
            rel.forEach(function(l) {
                var other = byId[l.source === hit.id ? l.target : l.source];
                var dir = l.source === hit.id ? '→' : '←';
                html += '<li>' + dir + ' ' + esc(l.relation) + ' ' + esc(other ? other.text.split('\n')[0] : '?') + '</li>';
            });
            html += '</ul>';
            panel.innerHTML = html;
            panel.style.display = 'block';
        }
    })();
    </script>
</body>
</html>
`, html.EscapeString(title), drawing, dataJSON, nodeCount, edgeCount, revision, timestamp)
}
