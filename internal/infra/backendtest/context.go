package backendtest

import "context"

type ctxKey struct{}

func withAccount(ctx context.Context, acc *account) context.Context {
	return context.WithValue(ctx, ctxKey{}, acc)
}

func accountFrom(ctx context.Context) *account {
	acc, _ := ctx.Value(ctxKey{}).(*account)
	return acc
}
