package export

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

func sampleView(t *testing.T) (*graph.View, *layout.Result) {
	t.Helper()
	snap := model.Snapshot{
		Version: model.SnapshotVersion,
		Nodes: []model.Node{
			{ID: "t", Kind: model.KindTopic, Text: "Cities & cars"},
			{ID: "c", Kind: model.KindClaim, Text: "Traffic < transit\nBuses move more people.", Metadata: map[string]string{"source": "survey"}},
		},
		Edges: []model.Edge{{ID: "e", Source: "c", Target: "t", Relation: model.RelSupports}},
	}
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	res, err := layout.Compute(context.Background(), g.View(), layout.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return g.View(), res
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", FormatSVG, false},
		{".PNG", FormatPNG, false},
		{"htm", FormatHTML, false},
		{"markdown", FormatMarkdown, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("ParseFormat(%q) err = %v, want ErrUnknownFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFrame_ContentStartsAtMargin(t *testing.T) {
	v, res := sampleView(t)
	opts := DefaultOptions()
	opts.Margin = 10
	opts.Scale = 2

	scene, w, h := Frame(v, res, opts)
	if len(scene.Nodes) != 2 {
		t.Fatalf("nodes = %d", len(scene.Nodes))
	}
	minX, minY := scene.Nodes[0].Rect.Min.X, scene.Nodes[0].Rect.Min.Y
	for _, n := range scene.Nodes[1:] {
		if n.Rect.Min.X < minX {
			minX = n.Rect.Min.X
		}
		if n.Rect.Min.Y < minY {
			minY = n.Rect.Min.Y
		}
	}
	if math.Abs(minX-10) > 1e-9 || math.Abs(minY-10) > 1e-9 {
		t.Errorf("content origin = (%v, %v), want (10, 10)", minX, minY)
	}
	if want := res.Bounds.Width()*2 + 20; math.Abs(w-want) > 1e-9 {
		t.Errorf("width = %v, want %v", w, want)
	}
	if want := res.Bounds.Height()*2 + 20; math.Abs(h-want) > 1e-9 {
		t.Errorf("height = %v, want %v", h, want)
	}
}

func TestWriteSVG(t *testing.T) {
	v, res := sampleView(t)
	var buf bytes.Buffer
	if err := WriteSVG(&buf, v, res, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", "</svg>", "Cities &amp; cars", "Traffic &lt; transit", "<line", "stroke:#5cb85c"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteSVG_ReportsWriteError(t *testing.T) {
	v, res := sampleView(t)
	if err := WriteSVG(failingWriter{}, v, res, DefaultOptions()); err == nil {
		t.Error("expected write error")
	}
}

func TestWritePNG(t *testing.T) {
	v, res := sampleView(t)
	opts := DefaultOptions()
	var buf bytes.Buffer
	if err := WritePNG(&buf, v, res, opts); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, w, h := Frame(v, res, opts)
	if got := img.Bounds().Dx(); got != clampSide(w) {
		t.Errorf("width = %d, want %d", got, clampSide(w))
	}
	if got := img.Bounds().Dy(); got != clampSide(h) {
		t.Errorf("height = %d, want %d", got, clampSide(h))
	}
}

func TestClampSide(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 1},
		{-5, 1},
		{10.2, 11},
		{1e9, maxPNGSide},
	}
	for _, tt := range tests {
		if got := clampSide(tt.in); got != tt.want {
			t.Errorf("clampSide(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWriteHTML(t *testing.T) {
	v, res := sampleView(t)
	opts := DefaultOptions()
	opts.Title = "Transit <draft>"
	var buf bytes.Buffer
	if err := WriteHTML(&buf, v, res, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Transit &lt;draft&gt;") {
		t.Error("title not escaped")
	}
	if strings.Contains(out, "<?xml") {
		t.Error("inline svg should not carry an xml declaration")
	}
	for _, want := range []string{`"id":"c"`, `"relation":"supports"`, `"anchor":"traffic-transit"`, "2 nodes"} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestMarkdown_Outline(t *testing.T) {
	v, _ := sampleView(t)
	md := Markdown(v, "Transit")

	for _, want := range []string{
		"# Transit",
		"- **Nodes**: 2",
		"```mermaid",
		"n1 ==>|supports| n0",
		"- **topic** Cities & cars <a id=\"cities-cars\"></a>",
		"  - _supports_ **claim** Traffic < transit",
		"| source | survey |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestMarkdown_Empty(t *testing.T) {
	md := Markdown(graph.New().View(), "")
	if !strings.Contains(md, "# Topic map") || !strings.Contains(md, "Empty[No nodes]") {
		t.Errorf("unexpected empty outline:\n%s", md)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	v, res := sampleView(t)
	if err := Write(&bytes.Buffer{}, Format("pdf"), v, res, DefaultOptions()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v", err)
	}
}

func TestFilename(t *testing.T) {
	name := Filename("Energy Policy", FormatSVG)
	if !strings.HasPrefix(name, "energy-policy_") || !strings.HasSuffix(name, ".svg") {
		t.Errorf("Filename = %q", name)
	}
	if name := Filename("???", FormatPNG); !strings.HasPrefix(name, "map_") {
		t.Errorf("Filename for untitled = %q", name)
	}
}

func TestInjectScript(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{"before body", "<html><body>x</body></html>", "<html><body>x<s></body></html>"},
		{"last body", "</body><body></body>", "</body><body><s></body>"},
		{"no body", "plain", "plain<s>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(injectScript([]byte(tt.page), []byte("<s>"))); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreviewServer(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPreviewServer(filepath.Join(dir, "map.tmap.json"), func() ([]byte, error) {
		return []byte("<html><body>page</body></html>"), nil
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()
	defer p.Stop()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	resp.Body.Close()
	if !strings.Contains(body.String(), "EventSource") {
		t.Error("page missing live reload script")
	}

	resp, err = http.Get(srv.URL + "/__preview__/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	events := make(chan string, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "event: ") {
				events <- strings.TrimPrefix(line, "event: ")
			}
		}
	}()

	expect := func(name string) {
		t.Helper()
		select {
		case got := <-events:
			if got != name {
				t.Fatalf("event = %q, want %q", got, name)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no %q event", name)
		}
	}
	expect("connected")
	p.notifyClients()
	expect("reload")
}
