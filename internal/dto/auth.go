package dto

// ── 认证模块请求 ──

// LoginRequest 操作员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required"`
}

// ── 认证模块响应 ──

// TokenResponse 登录响应
type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresIn   int              `json:"expires_in"` // 有效期（秒）
	Operator    OperatorResponse `json:"operator"`
}

// OperatorResponse 操作员信息（脱敏）
type OperatorResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	LastLoginAt string `json:"last_login_at,omitempty"`
}
