package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"casino-server/common/logger"
	"casino-server/internal/config"
	"casino-server/internal/controller/api"
	"casino-server/internal/gateway"
	infredis "casino-server/internal/infra/redis"
	infmq "casino-server/internal/infra/rocketmq"
	"casino-server/internal/service"
	"casino-server/internal/store"
	"casino-server/internal/worker"
	_ "casino-server/routers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 加载配置（Nacos 优先，本地文件兜底）
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Printf("[FATAL] 配置加载失败: %v\n", err)
		os.Exit(1)
	}
	config.SetCurrent(cfg)

	logger.InitLogger()
	logger.SetLevel(cfg.Server.LogLevel)
	defer logger.Sync()

	// 数据库
	st, err := store.Open(store.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("初始化表结构失败", zap.Error(err))
	}

	// Redis（可选，用于幂等锁与结果缓存）
	if cfg.Redis.Enabled {
		infredis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := infredis.Ping(ctx, 3*time.Second); err != nil {
			logger.Warn("Redis 连接异常，幂等快路径降级为数据库", zap.Error(err))
		}
	}

	// 服务装配
	ledgerSvc := service.NewLedgerService(st)
	coeffSvc, err := service.NewCoeffService(ctx, st)
	if err != nil {
		logger.Fatal("加载赔率配置失败", zap.Error(err))
	}
	promoSvc := service.NewPromoService(st, ledgerSvc)
	wagerSvc := service.NewWagerService(st, ledgerSvc, coeffSvc)
	payoutSvc := service.NewPayoutService(st, ledgerSvc, coeffSvc)
	gw := gateway.NewCryptoPay(cfg.Gateway.BaseURL, cfg.Gateway.APIToken,
		time.Duration(cfg.Gateway.TimeoutSec)*time.Second)
	api.Init(st, ledgerSvc, promoSvc, wagerSvc, payoutSvc, coeffSvc, gw)

	// 后台 worker
	var wg sync.WaitGroup
	dispatcher := worker.NewPayoutDispatcher(st, gw, worker.PayoutOptions{
		MaxAttempts:     cfg.Payout.MaxAttempts,
		BackoffBase:     time.Duration(cfg.Payout.BackoffBaseSec) * time.Second,
		BackoffCap:      time.Duration(cfg.Payout.BackoffCapSec) * time.Second,
		PollInterval:    time.Duration(cfg.Payout.PollIntervalSec) * time.Second,
		BatchSize:       cfg.Payout.BatchSize,
		DispatchTimeout: time.Duration(cfg.Payout.DispatchTimeoutSec) * time.Second,
	})
	dispatcher.Start(ctx, &wg)
	worker.StartOutboxDispatcher(ctx, &wg, st)

	// 配置热更新：动态调整日志级别
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		if newCfg != nil && (oldCfg == nil || oldCfg.Server.LogLevel != newCfg.Server.LogLevel) {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
	}); err != nil {
		logger.Warn("配置热更新未启用", zap.Error(err))
	}

	// HTTP 服务
	beego.BConfig.CopyRequestBody = true
	beego.BConfig.RunMode = beego.PROD
	go beego.Run(fmt.Sprintf(":%d", cfg.Server.Port))
	logger.Info("服务已启动", zap.Int("port", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))

	// 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("收到退出信号，开始关停")

	cancel()
	wg.Wait()
	infmq.Shutdown()
	if err := st.Close(); err != nil {
		logger.Error("关闭数据库失败", zap.Error(err))
	}
	logger.Info("已退出")
}
