package commands

import (
	"context"
	"time"

	"canvasgrab/lib/configutil"
	"canvasgrab/lib/restyutil"
	"canvasgrab/lib/scrapers/canvas/core"
	"canvasgrab/lib/scrapers/canvas/view"
	"canvasgrab/lib/serviceutil"
)

type Config struct {
	BaseUrl     string `json:"base_url"`
	CookieFile  string `json:"cookie_file"`
	DownloadDir string `json:"download_dir"`
	DelayMs     int    `json:"delay_ms"`
}

func (c Config) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.BaseUrl == "" {
		serviceutil.Fatal("failed to read config", errMissingBaseUrl)
	}
	if cfg.CookieFile == "" {
		cfg.CookieFile = "canvas_cookies.json"
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "CanvasDownloads"
	}
	if cfg.DelayMs == 0 {
		cfg.DelayMs = 500
	}
	return cfg
}

func createClient(ctx context.Context, cfg Config) view.Client {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	if *verbose {
		core.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/canvas"))
	}

	coreClient, err := core.NewClient(ctx, core.ClientOptions{
		BaseUrl:    cfg.BaseUrl,
		CookieFile: cfg.CookieFile,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize canvas client", err)
	}
	return view.NewClient(coreClient)
}
