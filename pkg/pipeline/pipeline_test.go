package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/volvulus/untwist/pkg/cache"
	"github.com/volvulus/untwist/pkg/errors"
	"github.com/volvulus/untwist/pkg/graph"
	"github.com/volvulus/untwist/pkg/observability"
	"github.com/volvulus/untwist/pkg/validate"
)

const forwardDump = `{"version":"1","records":[
	{"id":"b","kind":"alloc","relatesTo":["a"]},
	{"id":"a","kind":"alloc"}
]}`

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"SVG", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %v", tt.format, errors.GetCode(err))
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.MaxBytes == 0 || o.MaxAttributeLength == 0 || o.DropAttributes == nil || o.Logger == nil {
		t.Errorf("defaults not applied: %+v", o)
	}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call: %v", err)
	}

	for _, bad := range []Options{{Parallelism: -1}, {ParallelThreshold: -1}, {MaxBytes: -1}} {
		if err := bad.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("%+v: err = %v, want INVALID_CONFIG", bad, err)
		}
	}
}

func TestRunForwardReference(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Run(context.Background(), []byte(forwardDump), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Graph.Edges) != 1 {
		t.Fatalf("edges = %+v", res.Graph.Edges)
	}
	e := res.Graph.Edges[0]
	if e.Source != "alloc:b" || e.Target != "alloc:a" {
		t.Errorf("edge = %s -> %s, want alloc:b -> alloc:a", e.Source, e.Target)
	}
	if res.Stats.Deferred != 1 || res.Stats.Records != 2 || res.Version != "1" {
		t.Errorf("stats = %+v, version %q", res.Stats, res.Version)
	}
	if res.DumpHash != cache.Hash([]byte(forwardDump)) {
		t.Error("DumpHash should be the hash of the raw dump")
	}
}

func TestRunWarnings(t *testing.T) {
	raw := `{"version":"1","records":[
		{"id":"x","kind":"alloc","relatesTo":["missing","x"]},
		{"id":"lonely","kind":"user"}
	]}`
	res, err := NewRunner(nil, nil, nil).Run(context.Background(), []byte(raw), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var got []string
	for _, w := range res.Warnings {
		got = append(got, w.Source+":"+w.Code)
	}
	want := []string{"builder:UNRESOLVED_REFERENCE", "validator:SELF_LOOP", "validator:ISOLATED_NODE"}
	if !slices.Equal(got, want) {
		t.Errorf("warnings = %v, want %v", got, want)
	}
	if res.Warnings[0].RecordID != "x" {
		t.Errorf("builder warning record = %q", res.Warnings[0].RecordID)
	}
	if len(res.Graph.Nodes) != 2 || len(res.Graph.Edges) != 1 {
		t.Errorf("graph = %d nodes, %d edges", len(res.Graph.Nodes), len(res.Graph.Edges))
	}
}

func TestRunEmptyDump(t *testing.T) {
	res, err := NewRunner(nil, nil, nil).Run(context.Background(), []byte(`{"version":"1","records":[]}`), Options{})
	if err != nil {
		t.Fatalf("empty dump should load: %v", err)
	}
	if len(res.Graph.Nodes) != 0 || len(res.Graph.Edges) != 0 || len(res.Warnings) != 0 {
		t.Errorf("result = %+v", res)
	}
	data, _ := json.Marshal(res.Graph)
	if string(data) != `{"nodes":[],"edges":[]}` {
		t.Errorf("graph JSON = %s", data)
	}
}

func TestRunDecodeError(t *testing.T) {
	tests := []string{
		``,
		`not json`,
		`{"records":[]}`,
		`{"version":"9","records":[]}`,
		`{"version":"1"}`,
	}
	r := NewRunner(nil, nil, nil)
	for _, raw := range tests {
		_, err := r.Run(context.Background(), []byte(raw), Options{})
		if !errors.Is(err, errors.ErrCodeDecode) {
			t.Errorf("Run(%q) err = %v, want DECODE_ERROR", raw, err)
		}
	}
}

func TestRunTooLarge(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Run(context.Background(), []byte(forwardDump), Options{MaxBytes: 10})
	if !errors.Is(err, errors.ErrCodeDecode) {
		t.Errorf("err = %v, want DECODE_ERROR", err)
	}

	_, err = r.RunReader(context.Background(), strings.NewReader(forwardDump), Options{MaxBytes: 10})
	if !errors.Is(err, errors.ErrCodeDecode) {
		t.Errorf("RunReader err = %v, want DECODE_ERROR", err)
	}

	res, err := r.RunReader(context.Background(), strings.NewReader(forwardDump), Options{})
	if err != nil || len(res.Graph.Edges) != 1 {
		t.Errorf("RunReader = %v, %v", res, err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(nil, nil, nil).Run(ctx, []byte(forwardDump), Options{})
	if !errors.Is(err, errors.ErrCodeCanceled) {
		t.Errorf("err = %v, want CANCELED", err)
	}
}

type projectSpy struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	projects int
	statuses []string
}

func (s *projectSpy) OnProjectComplete(context.Context, int, int, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects++
}

func (s *projectSpy) OnLoadComplete(_ context.Context, status string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func TestFatalHaltsBeforeProjection(t *testing.T) {
	spy := &projectSpy{}
	observability.SetPipelineHooks(spy)
	defer observability.Reset()

	validateGraph = func(g *graph.Graph) *validate.Report {
		r := validate.Graph(g)
		r.Findings = append(r.Findings, validate.Finding{
			Severity: validate.SeverityFatal,
			Code:     validate.CodeDanglingEdge,
			EdgeID:   "alloc:b->alloc:ghost#relates",
			Message:  "edge references unknown node alloc:ghost",
		})
		return r
	}
	defer func() { validateGraph = validate.Graph }()

	out := NewLoader(nil).Load(context.Background(), []byte(forwardDump), Options{})
	if out.OK() {
		t.Fatal("fatal validation must not produce a success outcome")
	}
	if out.Graph != nil || out.Result != nil {
		t.Error("failure outcome must carry no graph")
	}
	if out.Failure.Kind != errors.ErrCodeValidationFatal {
		t.Errorf("kind = %s, want VALIDATION_FATAL", out.Failure.Kind)
	}
	if spy.projects != 0 {
		t.Error("projection ran after a fatal finding")
	}
	if !slices.Equal(spy.statuses, []string{observability.StatusFailure}) {
		t.Errorf("load statuses = %v", spy.statuses)
	}
}

func TestRunIdempotent(t *testing.T) {
	raw := []byte(`{"version":"1.1","records":[
		{"id":"g","kind":"group","attributes":{"cn":"Admins"},"relatesTo":[{"id":"u","rel":"member"},{"id":"c","rel":"member"}]},
		{"id":"u","kind":"user","attributes":{"displayName":"Ann","objectSid":"S-1-5"}},
		{"id":"c","kind":"computer"},
		{"id":"o","kind":"organizationalUnit","relatesTo":[{"id":"u","rel":"contains"},{"id":"c","rel":"contains"}]}
	]}`)
	r := NewRunner(nil, nil, nil)

	var outputs [][]byte
	for range 3 {
		res, err := r.Run(context.Background(), raw, Options{})
		if err != nil {
			t.Fatal(err)
		}
		data, err := json.Marshal(struct {
			G any
			W any
		}{res.Graph, res.Warnings})
		if err != nil {
			t.Fatal(err)
		}
		outputs = append(outputs, data)
	}
	for i := 1; i < len(outputs); i++ {
		if !bytes.Equal(outputs[0], outputs[i]) {
			t.Errorf("run %d differs:\n%s\n%s", i, outputs[0], outputs[i])
		}
	}
}

func TestRunReorderDeterminism(t *testing.T) {
	records := []string{
		`{"id":"a","kind":"alloc","relatesTo":["b","c"]}`,
		`{"id":"b","kind":"alloc","relatesTo":["c"]}`,
		`{"id":"c","kind":"region","relatesTo":[{"id":"a","kind":"alloc"}]}`,
		`{"id":"u","kind":"user","relatesTo":["a","nowhere"]}`,
		`{"id":"d","kind":"alloc"}`,
	}
	load := func(recs []string) (nodes, edges []string) {
		raw := `{"version":"1","records":[` + strings.Join(recs, ",") + `]}`
		res, err := NewRunner(nil, nil, nil).Run(context.Background(), []byte(raw), Options{})
		if err != nil {
			t.Fatal(err)
		}
		for _, n := range res.Graph.Nodes {
			nodes = append(nodes, n.ID)
		}
		for _, e := range res.Graph.Edges {
			edges = append(edges, e.ID)
		}
		slices.Sort(nodes)
		slices.Sort(edges)
		return nodes, edges
	}

	wantNodes, wantEdges := load(records)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 20 {
		shuffled := slices.Clone(records)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		nodes, edges := load(shuffled)
		if !slices.Equal(nodes, wantNodes) || !slices.Equal(edges, wantEdges) {
			t.Errorf("shuffle %d: nodes %v edges %v, want %v %v", i, nodes, edges, wantNodes, wantEdges)
		}
	}
}

type countingCache struct {
	cache.Cache
	sets int
}

func (c *countingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.sets++
	return c.Cache.Set(ctx, key, data, ttl)
}

func TestRunCache(t *testing.T) {
	mem, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	cc := &countingCache{Cache: mem}
	r := NewRunner(cc, nil, nil)
	ctx := context.Background()

	fresh, err := r.Run(ctx, []byte(forwardDump), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if fresh.CacheHit {
		t.Error("first run should miss")
	}

	cached, err := r.Run(ctx, []byte(forwardDump), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !cached.CacheHit {
		t.Error("second run should hit")
	}
	a, _ := json.Marshal(fresh)
	b, _ := json.Marshal(cached)
	if !bytes.Equal(a, b) {
		t.Errorf("cached result differs:\n%s\n%s", a, b)
	}

	other, err := r.Run(ctx, []byte(forwardDump), Options{MaxAttributeLength: 8})
	if err != nil {
		t.Fatal(err)
	}
	if other.CacheHit {
		t.Error("different projection options should miss")
	}

	refreshed, err := r.Run(ctx, []byte(forwardDump), Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheHit {
		t.Error("refresh should skip the cache")
	}
	if cc.sets != 3 {
		t.Errorf("cache writes = %d, want 3", cc.sets)
	}
}

func TestRunCacheKeepsNumbers(t *testing.T) {
	raw := []byte(`{"version":"1","records":[
		{"id":"a","kind":"alloc","attributes":{"size":9007199254740993,"ratio":1.0}}
	]}`)
	mem, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(mem, nil, nil)
	ctx := context.Background()

	fresh, err := r.Run(ctx, raw, Options{})
	if err != nil {
		t.Fatal(err)
	}
	cached, err := r.Run(ctx, raw, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !cached.CacheHit {
		t.Fatal("second run should hit")
	}

	attrs := cached.Graph.Nodes[0].Attributes
	if got, ok := attrs["size"].(json.Number); !ok || got.String() != "9007199254740993" {
		t.Errorf("cached size = %#v, want json.Number 9007199254740993", attrs["size"])
	}
	if got, ok := attrs["ratio"].(json.Number); !ok || got.String() != "1.0" {
		t.Errorf("cached ratio = %#v, want json.Number 1.0", attrs["ratio"])
	}
	a, _ := json.Marshal(fresh.Graph)
	b, _ := json.Marshal(cached.Graph)
	if !bytes.Equal(a, b) {
		t.Errorf("cached graph differs from fresh:\n%s\n%s", a, b)
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"version":"1","records":[`)
	for i := range 300 {
		if i > 0 {
			b.WriteString(",")
		}
		next := (i + 7) % 300
		b.WriteString(`{"id":"n` + strconv.Itoa(i) + `","kind":"alloc","relatesTo":["n` + strconv.Itoa(next) + `"]}`)
	}
	b.WriteString(`]}`)
	raw := []byte(b.String())

	r := NewRunner(nil, nil, nil)
	seq, err := r.Run(context.Background(), raw, Options{Parallelism: 1})
	if err != nil {
		t.Fatal(err)
	}
	par, err := r.Run(context.Background(), raw, Options{Parallelism: 4, ParallelThreshold: 10})
	if err != nil {
		t.Fatal(err)
	}
	if !par.Stats.Parallel || seq.Stats.Parallel {
		t.Errorf("parallel flags: seq %v par %v", seq.Stats.Parallel, par.Stats.Parallel)
	}
	a, _ := json.Marshal(seq.Graph)
	c, _ := json.Marshal(par.Graph)
	if !bytes.Equal(a, c) {
		t.Error("parallel build differs from sequential build")
	}
}

func TestRunnerRenderCachesArtifacts(t *testing.T) {
	mem, err := cache.NewMemoryCache(16)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	res, err := NewRunner(nil, nil, nil).Run(ctx, []byte(forwardDump), Options{})
	if err != nil {
		t.Fatal(err)
	}

	cc := &countingCache{Cache: mem}
	r := NewRunner(cc, nil, nil)

	first, err := r.Render(ctx, res.Graph, FormatDOT, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Render(ctx, res.Graph, FormatDOT, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("cached artifact differs from fresh render")
	}
	if cc.sets != 1 {
		t.Errorf("sets after two renders = %d, want 1", cc.sets)
	}

	if _, err := r.Render(ctx, res.Graph, FormatDOT, RenderOptions{Detailed: true}); err != nil {
		t.Fatal(err)
	}
	if cc.sets != 2 {
		t.Errorf("detailed render should be cached separately, sets = %d", cc.sets)
	}

	if _, err := r.Render(ctx, res.Graph, FormatJSON, RenderOptions{}); err != nil {
		t.Fatal(err)
	}
	if cc.sets != 2 {
		t.Errorf("json render should not be cached, sets = %d", cc.sets)
	}

	if _, err := r.Render(ctx, res.Graph, "png", RenderOptions{}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("png: err = %v, want INVALID_FORMAT", err)
	}
}
