package model

// User 用户表
// user_id 由接入方（机器人侧）给定，不使用自增主键
type User struct {
	ID        int64   `db:"user_id"`    // 用户ID（外部给定）
	Balance   float64 `db:"balance"`    // 余额（两位小数）
	Status    int8    `db:"status"`     // 状态: 1=正常 2=已删除
	CreatedAt int64   `db:"created_at"` // 创建时间（13位毫秒时间戳）
	UpdatedAt int64   `db:"updated_at"` // 更新时间（13位毫秒时间戳）
}
