package cli

import (
	"context"
	"errors"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/logging"
	"txo-strategist/internal/state"
)

// loadState returns the saved session, or a fresh one on first run. The
// result is normalized and its expiry rolled forward when it has passed.
func (a *App) loadState(ctx context.Context) (*state.AppState, error) {
	now := a.Now()
	d := a.sessionDefaults()
	logger := logging.FromContext(ctx)

	st, err := a.Store.Load(ctx)
	switch {
	case errors.Is(err, apperrors.ErrStateNotFound):
		st = state.Default(d, a.Calendar, now)
		if id := a.Config.Analysis.DefaultStrategy; id != "" {
			if err := st.Select(a.Registry, id); err != nil {
				logger.Warn().Str("strategy", id).Msg("Configured default strategy not found")
			}
		}
		logger.Debug().Msg("Created fresh session state")
		return st, nil
	case err != nil:
		var dataErr *apperrors.DataError
		if errors.As(err, &dataErr) {
			logger.Warn().Err(err).Msg("Saved session is unreadable, starting fresh")
			return state.Default(d, a.Calendar, now), nil
		}
		return nil, apperrors.Wrap(err, "loading session")
	}

	st.Normalize(d, a.Calendar, now)
	prev := st.ExpiryDate
	if st.RollExpiry(a.Calendar, now) {
		logger.Info().Str("from", prev).Str("to", st.ExpiryDate).Msg("Expiry passed, rolled to next settlement")
	}
	return st, nil
}

// saveState persists st.
func (a *App) saveState(ctx context.Context, st *state.AppState) error {
	st.UpdatedAt = a.Now()
	if err := a.Store.Save(ctx, st); err != nil {
		return apperrors.Wrap(err, "saving session")
	}
	return nil
}

// updateState loads the session, applies fn and saves the result.
func (a *App) updateState(ctx context.Context, fn func(st *state.AppState) error) (*state.AppState, error) {
	st, err := a.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := a.saveState(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
