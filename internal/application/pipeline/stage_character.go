package pipeline

import (
	"context"
	"fmt"
	"time"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

// CharacterStage 逐个角色生成详细档案
// 进度按角色序号折算到阶段区间内
type CharacterStage struct {
	completer TextCompleter
	tracker   *Tracker
	sampling  config.StageSampling
	timeout   time.Duration
}

// NewCharacterStage 创建角色阶段
func NewCharacterStage(completer TextCompleter, tracker *Tracker, cfg config.PipelineConfig) *CharacterStage {
	return &CharacterStage{
		completer: completer,
		tracker:   tracker,
		sampling:  cfg.Character,
		timeout:   cfg.CallTimeout,
	}
}

// Run 为每个角色生成档案并汇总主要角色名单
func (s *CharacterStage) Run(ctx context.Context, projectID string, characters []entity.CharacterInput, sc *StageContext) error {
	ctx, span := stageTracer.Start(ctx, "stage.Character")
	defer span.End()

	ctx = logger.WithContext(ctx, logger.StageKey, entity.StageCharacter)
	start := time.Now()

	if err := s.tracker.Report(ctx, projectID, entity.StageCharacter, entity.StageStatusRunning, 10, "Analyzing character data", ""); err != nil {
		return err
	}

	profiles := make(map[string]*CharacterProfile, len(characters))
	mainCharacters := make([]string, 0, len(characters))

	for i, c := range characters {
		pct := 10 + float64(i)/float64(len(characters))*80
		task := fmt.Sprintf("Processing character: %s", c.Name)
		if err := s.tracker.Report(ctx, projectID, entity.StageCharacter, entity.StageStatusRunning, pct, task, ""); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		profile, err := s.completer.Complete(callCtx, buildCharacterPrompt(sc.WorldBible, c), s.sampling.MaxTokens, s.sampling.Temperature)
		cancel()
		if err != nil {
			span.RecordError(err)
			metrics.StageRunsTotal.WithLabelValues(entity.StageCharacter, "error").Inc()
			_ = s.tracker.Report(ctx, projectID, entity.StageCharacter, entity.StageStatusError, 0, "", err.Error())
			return err
		}

		profiles[c.Name] = &CharacterProfile{
			Profile:   profile,
			Input:     c,
			Archetype: c.Archetype,
			Voice:     c.VoiceSpeechPattern,
		}
		if c.PlotRoleTag != "minor" {
			mainCharacters = append(mainCharacters, c.Name)
		}
	}

	sc.Profiles = profiles
	sc.MainCharacters = mainCharacters

	metrics.StageDuration.WithLabelValues(entity.StageCharacter).Observe(time.Since(start).Seconds())
	metrics.StageRunsTotal.WithLabelValues(entity.StageCharacter, "ok").Inc()
	logger.Info(ctx, "character profiles generated", "count", len(profiles), "main", len(mainCharacters))

	return s.tracker.Report(ctx, projectID, entity.StageCharacter, entity.StageStatusCompleted, 100, "Character profiles completed", "")
}
