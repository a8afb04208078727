package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Lezek123/battleships-indexer/internal/domain"
	"github.com/Lezek123/battleships-indexer/internal/store"
)

// maxPerPage caps list page sizes; larger requests are clamped, not rejected.
const maxPerPage = 100

// gameSummary is the list-view rendering of a projection.
type gameSummary struct {
	GameIndex      uint64          `json:"gameIndex"`
	Status         string          `json:"status"`
	Creator        string          `json:"creator"`
	Bomber         string          `json:"bomber,omitempty"`
	Prize          decimal.Decimal `json:"prize"`
	BombCost       decimal.Decimal `json:"bombCost"`
	LastEventBlock uint64          `json:"lastEventBlock"`
}

// gameDetail adds boards, deadlines and read-side derived fields.
type gameDetail struct {
	gameSummary
	CreationHash       string                                    `json:"creationHash"`
	JoinTimeoutBlock   uint64                                    `json:"joinTimeoutBlock"`
	RevealTimeoutBlock uint64                                    `json:"revealTimeoutBlock,omitempty"`
	PaidBombCost       decimal.Decimal                           `json:"paidBombCost"`
	BombsGrid          *[domain.BoardSize][domain.BoardSize]bool `json:"bombsGrid,omitempty"`
	ShipsGrid          *[domain.BoardSize][domain.BoardSize]bool `json:"shipsGrid,omitempty"`
	SunkShips          uint8                                     `json:"sunkShips"`
	SurvivingShips     int                                       `json:"survivingShips"`
	CreatorClaim       decimal.Decimal                           `json:"creatorClaim"`
	BomberClaim        decimal.Decimal                           `json:"bomberClaim"`
	ClaimReason        string                                    `json:"claimReason,omitempty"`
	Winner             string                                    `json:"winner,omitempty"`
}

// HandleGamesList returns projections filtered by status and player.
func (h *Handler) HandleGamesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.Filter{
		Status: domain.Status(q.Get("status")),
		Player: q.Get("player"),
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Page = n
		}
	}
	if v := q.Get("perPage"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.PerPage = min(n, maxPerPage)
		}
	}

	projections, err := h.Store.ListProjections(r.Context(), filter)
	if err != nil {
		slog.Error("list games failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	summaries := make([]gameSummary, 0, len(projections))
	for i := range projections {
		summaries = append(summaries, summarize(&projections[i]))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleGameDetail returns one game's full projection.
func (h *Handler) HandleGameDetail(w http.ResponseWriter, r *http.Request) {
	gameIndex, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game index")
		return
	}

	p, err := h.Store.Projection(r.Context(), gameIndex)
	if err != nil {
		slog.Error("load game failed", "game_index", gameIndex, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	detail := gameDetail{
		gameSummary:        summarize(p),
		CreationHash:       p.CreationHash,
		JoinTimeoutBlock:   p.JoinTimeoutBlock,
		RevealTimeoutBlock: p.RevealTimeoutBlock,
		PaidBombCost:       p.PaidBombCost,
		SunkShips:          p.SunkShips,
		SurvivingShips:     p.SurvivingShips(),
		CreatorClaim:       p.CreatorClaim,
		BomberClaim:        p.BomberClaim,
		ClaimReason:        string(p.ClaimReason),
		Winner:             winner(p),
	}
	if p.BombsBoard != nil {
		grid := p.BombsBoard.Grid()
		detail.BombsGrid = &grid
	}
	if p.ShipsBoard != nil {
		grid := p.ShipsBoard.Grid()
		detail.ShipsGrid = &grid
	}
	writeJSON(w, http.StatusOK, detail)
}

func summarize(p *domain.Projection) gameSummary {
	return gameSummary{
		GameIndex:      p.GameIndex,
		Status:         string(p.Status),
		Creator:        p.Creator,
		Bomber:         p.Bomber,
		Prize:          p.Prize,
		BombCost:       p.BombCost,
		LastEventBlock: p.LastEventBlock,
	}
}

// winner is a read-side computation over cached board data; the projection
// itself stores only what the event history says.
func winner(p *domain.Projection) string {
	if p.Status != domain.StatusFinished {
		return ""
	}
	switch p.ClaimReason {
	case domain.ClaimJoinTimeout:
		return p.Creator
	case domain.ClaimRevealTimeout:
		return p.Bomber
	}
	if p.BomberClaim.GreaterThan(p.CreatorClaim) {
		return p.Bomber
	}
	return p.Creator
}
