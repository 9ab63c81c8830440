// Package config provides configuration parsing for quark.
//
// The configuration lives in quark.json or quark.yaml in the working
// directory. This package handles loading, saving, and validating it, and
// turns it into runtime options and a logger.
//
// # Configuration File Structure
//
//	runtime:
//	  maxFlushTasks: 100000
//	  maxEffectReruns: 100
//	  strongRegistry: false
//	log:
//	  level: info
//	  format: text
//	telemetry:
//	  prometheus:
//	    enabled: true
//	    namespace: quark
//	  tracing:
//	    enabled: false
//	    tracerName: github.com/vango-dev/quark
//	devtools:
//	  addr: localhost:7070
//	  maxEventsPerSecond: 50
//	  burst: 100
//
// quark.json uses the same keys.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rt := quark.NewRuntime(cfg.RuntimeOptions()...)
package config
