package handler

type ContextKey string

var (
	SubCtxKey        ContextKey = "sub"
	AllocationRunCtx ContextKey = "allocationRun"
)
