package main

import (
	"log/slog"
	"os"

	"trainops-supervisor/internal/config"
	"trainops-supervisor/internal/forwarder"
	"trainops-supervisor/internal/telemetry"
)

// newWriters builds the remote sink stack and the local mirror from the
// session and environment. It returns the writers and a cleanup function
// to close any resources. remote is nil when no endpoint is configured:
// the supervisor then runs in local-only mode and the container log is
// the only record.
func newWriters(cfg *config.Config, session *telemetry.Session, localOnly bool, logger *slog.Logger) (remote, mirror forwarder.ChunkWriter, cleanup func(), err error) {
	cleanup = func() {}

	mirror = forwarder.NewStdoutWriter()
	var closers []func()

	if cfg.MirrorFile != "" {
		fw, ferr := forwarder.NewFileWriter(cfg.MirrorFile)
		if ferr != nil {
			return nil, nil, nil, ferr
		}
		closers = append(closers, func() { fw.Close() })
		mirror = forwarder.NewMultiWriter(mirror, fw)
	}

	if !localOnly {
		var remotes []forwarder.ChunkWriter
		if session.Remote() {
			remotes = append(remotes, forwarder.NewHTTPWriter(session))
		}
		if host := os.Getenv("GREPTIMEDB_ENDPOINT"); host != "" {
			gw, gerr := forwarder.NewGreptimeWriter(host, greptimeDatabase(), logger)
			if gerr != nil {
				return nil, nil, nil, gerr
			}
			remotes = append(remotes, gw)
		}
		switch len(remotes) {
		case 0:
			logger.Info("no remote endpoint configured, local-only mode", "component", "writer")
		case 1:
			remote = remotes[0]
		default:
			remote = forwarder.NewMultiWriter(remotes...)
		}
	} else {
		logger.Info("local-only mode requested", "component", "writer")
	}

	cleanup = func() {
		for _, c := range closers {
			c()
		}
	}
	return remote, mirror, cleanup, nil
}

func greptimeDatabase() string {
	if db := os.Getenv("GREPTIMEDB_DATABASE"); db != "" {
		return db
	}
	return "public"
}
