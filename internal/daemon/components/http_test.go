package components

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/daemon"
)

func TestNewHTTPServerComponent_DefaultDependencies(t *testing.T) {
	comp := NewHTTPServerComponent(nil, &config.Config{}, nil)
	deps := comp.Dependencies()

	want := []string{"Catalog"}
	if len(deps) != len(want) {
		t.Fatalf("dependencies length = %d, want %d", len(deps), len(want))
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Fatalf("dependency[%d] = %s, want %s", i, deps[i], want[i])
		}
	}
}

func TestNewHTTPServerComponentWithDependencies_Copy(t *testing.T) {
	custom := []string{"Catalog"}
	comp := NewHTTPServerComponentWithDependencies(nil, &config.Config{}, nil, custom)

	custom[0] = "Mutated"

	deps := comp.Dependencies()
	if len(deps) != 1 {
		t.Fatalf("dependencies length = %d, want 1", len(deps))
	}
	if deps[0] != "Catalog" {
		t.Fatalf("dependency = %s, want Catalog", deps[0])
	}

	deps[0] = "MutatedAgain"
	if comp.Dependencies()[0] != "Catalog" {
		t.Fatal("Dependencies() must return a copy")
	}
}

func TestHTTPServerComponent_InitRequiresCatalog(t *testing.T) {
	comp := NewHTTPServerComponent(nil, &config.Config{}, NewCatalogComponent(&config.Config{}))
	if err := comp.Init(context.Background()); err == nil {
		t.Fatal("Init() should fail before the catalog is built")
	}

	health, _ := comp.Health(context.Background())
	if health.Healthy {
		t.Error("uninitialized HTTPServer should be unhealthy")
	}
}

func TestHTTPServerComponent_ServesSlashCommands(t *testing.T) {
	cfg := testComponentConfig(t)
	cfg.Server.Port = 0

	d, err := daemon.NewDaemon(cfg)
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}
	cat := NewCatalogComponent(cfg)
	httpComp := NewHTTPServerComponent(d, cfg, cat)
	d.AddComponent(cat)
	d.AddComponent(httpComp)

	ctx := context.Background()
	if err := cat.Init(ctx); err != nil {
		t.Fatalf("Catalog.Init() error = %v", err)
	}
	if err := httpComp.Init(ctx); err != nil {
		t.Fatalf("HTTPServer.Init() error = %v", err)
	}
	if err := httpComp.Start(ctx); err != nil {
		t.Fatalf("HTTPServer.Start() error = %v", err)
	}
	defer httpComp.Stop(ctx)

	_, port, err := net.SplitHostPort(httpComp.Addr())
	if err != nil {
		t.Fatalf("bound address %q: %v", httpComp.Addr(), err)
	}
	base := "http://127.0.0.1:" + port
	form := url.Values{"command": {"/abbrev"}, "token": {"xxxxx"}, "text": {"row1col1"}}
	resp, err := http.Post(base+config.DefaultSlackCommandsPath, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST slash command: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		ResponseType string `json:"response_type"`
		Attachments  []struct {
			Title string `json:"title"`
			Text  string `json:"text"`
		} `json:"attachments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ResponseType != "in_channel" {
		t.Errorf("response_type = %q, want in_channel", body.ResponseType)
	}
	if len(body.Attachments) != 2 || body.Attachments[1].Text != "*row1col1* is row1col3" {
		t.Errorf("attachments = %+v", body.Attachments)
	}

	health, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer health.Body.Close()

	var report struct {
		Status     string `json:"status"`
		Components map[string]struct {
			Healthy bool `json:"healthy"`
		} `json:"components"`
	}
	if err := json.NewDecoder(health.Body).Decode(&report); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if report.Status != "ok" {
		t.Errorf("status = %q, want ok", report.Status)
	}
	if !report.Components["Catalog"].Healthy || !report.Components["HTTPServer"].Healthy {
		t.Errorf("components = %+v", report.Components)
	}
}
