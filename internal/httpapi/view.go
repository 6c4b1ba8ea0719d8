package httpapi

import (
	"errors"
	"net/http"

	"github.com/park285/cheese-solo-chess/internal/domain"
	"github.com/park285/cheese-solo-chess/internal/msgcat"
	"github.com/park285/cheese-solo-chess/internal/rules"
	"github.com/park285/cheese-solo-chess/internal/session"
	"github.com/park285/cheese-solo-chess/pkg/solodto"
)

func moveView(mv *rules.Move) *solodto.MoveView {
	if mv == nil {
		return nil
	}
	return &solodto.MoveView{
		From:      mv.From,
		To:        mv.To,
		Promotion: mv.Promotion,
		SAN:       mv.SAN,
		UCI:       mv.UCI,
		Color:     string(mv.Color),
	}
}

func sessionView(snap session.Snapshot, cat *msgcat.Catalog) solodto.SessionView {
	st := snap.State
	v := solodto.SessionView{
		GameID:    snap.GameID,
		Phase:     st.Phase.String(),
		Turn:      string(st.Turn),
		Human:     string(st.Human),
		FEN:       snap.Position,
		Ply:       st.Ply,
		IsOver:    st.IsOver,
		Pending:   snap.Pending,
		LastMove:  moveView(st.LastMove),
		History:   snap.Entries,
		StartedAt: snap.StartedAt,
	}
	if v.History == nil {
		v.History = []string{}
	}
	if st.Outcome.Terminal() {
		v.Outcome = &solodto.OutcomeView{
			Status: string(st.Outcome.Status),
			Winner: string(st.Outcome.Winner),
			Method: st.Outcome.Method,
			Result: st.Outcome.Result,
		}
		v.Message = cat.Outcome(st.Outcome)
	}
	return v
}

// errorFor maps session errors to a status code and a client message.
func errorFor(err error, cat *msgcat.Catalog, from, to string) (int, solodto.DomainError) {
	data := map[string]any{"From": from, "To": to}
	switch {
	case errors.Is(err, session.ErrOutOfTurn):
		return http.StatusUnprocessableEntity, solodto.DomainError{Code: "out_of_turn", Message: cat.Text(msgcat.MoveOutOfTurn, data)}
	case errors.Is(err, session.ErrGameOver):
		return http.StatusUnprocessableEntity, solodto.DomainError{Code: "game_over", Message: cat.Text(msgcat.GameOver, data)}
	case errors.Is(err, session.ErrIllegalMove):
		return http.StatusUnprocessableEntity, solodto.DomainError{Code: "illegal_move", Message: cat.Text(msgcat.MoveIllegal, data)}
	case errors.Is(err, session.ErrInvalidUndo):
		return http.StatusUnprocessableEntity, solodto.DomainError{Code: "undo_none", Message: cat.Text(msgcat.UndoNone, data)}
	default:
		return http.StatusInternalServerError, solodto.DomainError{Code: "internal", Message: cat.Text(msgcat.ErrorInternal, data)}
	}
}

func gameSummary(g *domain.SoloGame) solodto.GameSummary {
	return solodto.GameSummary{
		GameID:      g.GameID,
		HumanColor:  g.HumanColor,
		HumanResult: g.HumanResult(),
		Status:      g.Status,
		Result:      g.Result,
		Moves:       g.Moves,
		PGN:         g.PGN,
		EndedAt:     g.EndedAt,
	}
}
