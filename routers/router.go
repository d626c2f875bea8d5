package routers

import (
	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"casino-server/internal/config"
	"casino-server/internal/controller/api"
	"casino-server/internal/metrics"
	"casino-server/internal/middleware"
)

// init 注册HTTP路由与全局过滤器
func init() {
	cfg := config.GetCurrent()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查与指标（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")
	if cfg == nil || cfg.Observability.EnableProm {
		beego.Handler("/metrics", promhttp.Handler())
	}

	// 令牌签发：由可信的游戏前置进程调用，无用户认证
	beego.Router("/api/user/token", &api.UserController{}, "post:Token")

	// ========== 业务 API（JWT 用户认证） ==========

	beego.InsertFilter("/api/wager", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/wager/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/wager", &api.WagerController{}, "post:Place")
	beego.Router("/api/wager/history", &api.WagerController{}, "get:History")

	beego.InsertFilter("/api/promo/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/promo/activate", &api.PromoController{}, "post:Activate")

	beego.InsertFilter("/api/payout", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/payout/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/payout", &api.PayoutController{}, "post:Enqueue")
	beego.Router("/api/payout/list", &api.PayoutController{}, "get:List")

	beego.InsertFilter("/api/user/balance", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/user/transactions", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/user/balance", &api.UserController{}, "get:Balance")
	beego.Router("/api/user/transactions", &api.UserController{}, "get:Transactions")

	// ========== 管理 API（管理员 Bearer Token） ==========

	beego.InsertFilter("/api/admin/*", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.Router("/api/admin/promo", &api.AdminController{}, "post:CreatePromo;get:ListPromos")
	beego.Router("/api/admin/promo/deactivate", &api.AdminController{}, "post:DeactivatePromo")
	beego.Router("/api/admin/promo/stats", &api.AdminController{}, "get:PromoStats")
	beego.Router("/api/admin/balance", &api.AdminController{}, "post:SetBalance")
	beego.Router("/api/admin/coefficient", &api.AdminController{}, "put:SetCoefficient;get:Coefficients")
	beego.Router("/api/admin/user/status", &api.AdminController{}, "post:SetUserStatus")
	beego.Router("/api/admin/audit", &api.AdminController{}, "get:Audit")
	beego.Router("/api/admin/payout/depth", &api.AdminController{}, "get:PayoutDepth")
	beego.Router("/api/admin/gateway", &api.AdminController{}, "get:GatewayStatus")
}
