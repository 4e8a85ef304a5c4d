package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gearxr/gear/internal/ai"
	"github.com/gearxr/gear/pkg/core"
	"github.com/gearxr/gear/pkg/rpc"
)

// GenerateContent asks the generator for hotspot text or a quiz object.
func (s *Service) GenerateContent(ctx context.Context, args rpc.GenerateContentArgs) (any, error) {
	if _, err := s.deps.Store.Activity(ctx, args.GearID); err != nil {
		return nil, err
	}
	if _, err := requireManage(ctx); err != nil {
		return nil, err
	}
	if s.deps.Generator == nil || !s.deps.Generator.Enabled() {
		return nil, ai.ErrNotConfigured
	}

	prompt := strings.TrimSpace(args.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", ErrInvalidParam)
	}
	kind := strings.ToLower(args.Type)
	if kind != string(core.HotspotQuiz) {
		kind = string(core.HotspotInfo)
	}

	content, err := s.deps.Generator.Generate(ctx, prompt, kind)
	if err != nil {
		return nil, err
	}
	return core.GeneratedContent{Success: true, Content: content}, nil
}
