// Package config provides configuration parsing for pages projects.
//
// The configuration lives at the project root in pages.json, or in
// pages.yaml / pages.yml. JSON is tried first. Every field is optional;
// defaults are applied after loading.
//
// # Configuration File Structure
//
//	{
//	  "name": "shop",
//	  "paths": {
//	    "pages": "src/pages",
//	    "public": "public",
//	    "entry": "index.tsx"
//	  },
//	  "dev": {
//	    "port": 5173,
//	    "host": "localhost",
//	    "hotReload": true,
//	    "upstream": "http://localhost:5174"
//	  },
//	  "build": {
//	    "output": "dist",
//	    "bundler": "command",
//	    "command": "npx vite build"
//	  },
//	  "server": {
//	    "port": 3000,
//	    "compression": {"enabled": true, "level": "default"}
//	  },
//	  "publish": {
//	    "bucket": "shop-site",
//	    "prefix": "www/"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Pages:", cfg.PagesPath())
package config
