// Package config provides local-first configuration for segcanvas.
//
// Settings live in the project's .segcanvas/ directory:
//
//	.segcanvas/
//	├── config.json        # committed to git
//	└── .gitignore         # ignores logs
//
// The file is a flat JSON object:
//
//	{
//	  "pixels_per_second": 30,
//	  "track_height": 48,
//	  "cell_width": 4,
//	  "redraw_interval": "100ms",
//	  "completion_buffer": 64,
//	  "want_minima": true,
//	  "log_level": "info",
//	  "log_file": "${HOME}/.segcanvas.log",
//	  "metrics_addr": ""
//	}
//
// Every key can be overridden with an environment variable named after it,
// for example SEGCANVAS_REDRAW_INTERVAL=50ms. log_file and metrics_addr may
// reference environment variables with $VAR or ${VAR}.
//
// Example usage:
//
//	manager := config.NewManager("/path/to/project")
//	if err := manager.Load(); err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := manager.Get()
//	fmt.Println("zoom:", cfg.PixelsPerSecond)
//
//	// Update a setting
//	manager.Set("cell_width", "2")
package config
