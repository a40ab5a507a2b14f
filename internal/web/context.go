package web

import "context"

type workspaceKey struct{}

func withWorkspace(ctx context.Context, ws *workspace) context.Context {
	return context.WithValue(ctx, workspaceKey{}, ws)
}

// workspaceFrom returns the session workspace installed by the session middleware.
func workspaceFrom(ctx context.Context) *workspace {
	ws, _ := ctx.Value(workspaceKey{}).(*workspace)
	return ws
}
