package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"casino-server/common/logger"
	"casino-server/internal/model"
	"casino-server/internal/store"
)

// CoeffService 赔率与限额配置
// 启动时全量加载进内存，写通（先库后缓存），未知键一律拒绝
type CoeffService interface {
	Get(key model.CoeffKey) float64
	All() map[model.CoeffKey]float64
	Set(ctx context.Context, key model.CoeffKey, value float64, updatedBy string) error
	Reload(ctx context.Context) error
}

type coeffService struct {
	st *store.Store

	mu    sync.RWMutex
	cache map[model.CoeffKey]float64
}

// NewCoeffService 加载失败直接报错，不允许带空配置启动
func NewCoeffService(ctx context.Context, st *store.Store) (CoeffService, error) {
	s := &coeffService{st: st, cache: make(map[model.CoeffKey]float64)}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload 从库全量加载，库中的未知键丢弃并告警，缺失键回填默认值
func (s *coeffService) Reload(ctx context.Context) error {
	loaded, err := s.st.LoadCoefficients(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[model.CoeffKey]float64, len(model.DefaultCoefficients))
	for key, def := range model.DefaultCoefficients {
		fresh[key] = def
	}
	for key, val := range loaded {
		if !model.IsValidCoeffKey(key) {
			logger.WarnCtx(ctx, "忽略未知配置键", zap.String("key", string(key)))
			continue
		}
		fresh[key] = val
	}

	s.mu.Lock()
	s.cache = fresh
	s.mu.Unlock()
	return nil
}

func (s *coeffService) Get(key model.CoeffKey) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.cache[key]; ok {
		return v
	}
	return model.DefaultCoefficients[key]
}

func (s *coeffService) All() map[model.CoeffKey]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.CoeffKey]float64, len(s.cache))
	for k, v := range s.cache {
		out[k] = v
	}
	return out
}

// Set 写通更新单键，未知键与非正值拒绝
func (s *coeffService) Set(ctx context.Context, key model.CoeffKey, value float64, updatedBy string) error {
	if !model.IsValidCoeffKey(key) {
		return ErrUnknownCoeffKey
	}
	if value <= 0 {
		return ErrInvalidCoeff
	}

	if err := s.st.UpsertCoefficient(ctx, key, value, updatedBy); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()

	logger.InfoCtx(ctx, "配置已更新",
		zap.String("key", string(key)), zap.Float64("value", value), zap.String("updated_by", updatedBy))
	return nil
}
