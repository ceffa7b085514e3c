package domain

// Session is the signed-in identity the per-user view is bound to.
type Session struct {
	UserID string
	Email  string
}
