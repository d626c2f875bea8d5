package api

import (
	beego "github.com/beego/beego/v2/server/web"
)

// HealthController 提供健康检查端点：/healthz 与 /readyz

type HealthController struct{ beego.Controller }

// Healthz 存活探针：仅返回进程存活
func (c *HealthController) Healthz() {
	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ok"))
}

// Readyz 就绪探针：校验数据库连通性
func (c *HealthController) Readyz() {
	if st != nil {
		if err := st.DB().PingContext(c.Ctx.Request.Context()); err != nil {
			c.Ctx.Output.SetStatus(503)
			_ = c.Ctx.Output.Body([]byte("db unavailable"))
			return
		}
	}
	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ready"))
}
