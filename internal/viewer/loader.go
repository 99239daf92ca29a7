package viewer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/model"
	"github.com/Faultbox/modelgl/internal/logger"
)

// LoadModel loads the model at p and creates its native buffers. Dangling
// references are logged and the model is still returned, since the valid
// parts can be drawn.
func LoadModel(ctx glctx.Context, provider model.Provider, p string, opts model.Options) (*model.Model, error) {
	d, err := model.Open(provider, p)
	if err != nil {
		return nil, err
	}

	m, err := model.New(ctx, d, opts)
	var verr *model.ValidationError
	if errors.As(err, &verr) && m != nil {
		logger.Named("viewer").Warn("model has dangling references",
			zap.String("path", p),
			zap.Int("count", len(verr.References)),
			zap.Error(err))
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return m, nil
}

// BufferUsage maps a configured usage name to its native hint.
func BufferUsage(name string) glctx.Enum {
	switch name {
	case "dynamic":
		return glctx.DynamicDraw
	case "stream":
		return glctx.StreamDraw
	default:
		return glctx.StaticDraw
	}
}
