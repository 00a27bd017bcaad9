package handler

type ContextKey string

var (
	CurrentUserCtx ContextKey = "currentUser"
	ParentCtx      ContextKey = "parent"
)
