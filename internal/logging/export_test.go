package logging

import "go.uber.org/zap/zapcore"

func Build(cfg Config, out zapcore.WriteSyncer) (*Logger, error) {
	return build(cfg, out)
}
