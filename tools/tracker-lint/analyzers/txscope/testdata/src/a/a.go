package a

import "context"

type Queries interface {
	FindCase(ctx context.Context, id string) (string, error)
	SaveCase(ctx context.Context, id string) error
}

type DB interface {
	Queries
	RunInTx(ctx context.Context, fn func(q Queries) error) error
}

type handler struct {
	db DB
}

func (h *handler) bad(ctx context.Context) error {
	return h.db.RunInTx(ctx, func(q Queries) error {
		if _, err := h.db.FindCase(ctx, "a"); err != nil { // want `h\.db\.FindCase called inside RunInTx`
			return err
		}
		return q.SaveCase(ctx, "a")
	})
}

func badParam(ctx context.Context, db DB) error {
	return db.RunInTx(ctx, func(q Queries) error {
		return db.SaveCase(ctx, "a") // want `db\.SaveCase called inside RunInTx`
	})
}

func good(ctx context.Context, db DB) error {
	return db.RunInTx(ctx, func(q Queries) error {
		_, err := q.FindCase(ctx, "a")
		return err
	})
}

func outside(ctx context.Context, db DB) error {
	if _, err := db.FindCase(ctx, "a"); err != nil {
		return err
	}
	return db.RunInTx(ctx, func(q Queries) error {
		return nil
	})
}
