package client

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"kanbanmusic/internal/models"
	"kanbanmusic/internal/ordering"
)

// BoardSync keeps an optimistic local copy of boards and translates list
// rearrangements into the minimal set of server updates. Reorder operations
// on one board are serialized through a per-board lock, so the
// read-plan-write sequence never races with itself.
//
// The individual update calls of one operation are not atomic as a group: if
// one fails mid-way, earlier calls have already taken effect server-side. No
// compensation is attempted; the rollback plus the settlement refetch
// converge the local copy to whatever state the server ended up in.
type BoardSync struct {
	client *Client
	cache  *Cache[*BoardDetail]

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewBoardSync(c *Client) *BoardSync {
	return &BoardSync{
		client: c,
		cache: NewCache(func(ctx context.Context, boardID string) (*BoardDetail, error) {
			return c.GetBoard(ctx, boardID)
		}),
		locks: make(map[string]*sync.Mutex),
	}
}

// Board returns the local copy of the board, loading it on first use.
func (s *BoardSync) Board(ctx context.Context, boardID string) (*BoardDetail, error) {
	return s.cache.Load(ctx, boardID)
}

// WaitSettled blocks until pending background refetches are done. Intended
// for tests and shutdown.
func (s *BoardSync) WaitSettled() {
	s.cache.WaitSettled()
}

// MoveColumn moves the column at index from to index to and syncs every
// column whose order changed. Dropping a column on its own position issues no
// updates.
func (s *BoardSync) MoveColumn(ctx context.Context, boardID string, from, to int) error {
	defer s.lock(boardID)()

	detail, err := s.cache.Load(ctx, boardID)
	if err != nil {
		return err
	}

	siblings := columnSiblings(detail.Columns)
	desired := ordering.MoveIndex(siblings, from, to)
	updates := ordering.Reorder(desired)
	if len(updates) == 0 {
		return nil
	}

	apply := func(old *BoardDetail) *BoardDetail {
		next := *old
		byID := make(map[string]models.Column, len(old.Columns))
		for _, col := range old.Columns {
			byID[col.ID] = col
		}
		next.Columns = make([]models.Column, len(desired))
		for i, sib := range desired {
			col := byID[sib.ID]
			col.Order = i
			next.Columns[i] = col
		}
		return &next
	}

	request := func(ctx context.Context) error {
		for _, u := range updates {
			order := u.Order
			if _, err := s.client.UpdateColumn(ctx, u.ID, ColumnPatch{Order: &order}); err != nil {
				return fmt.Errorf("updating column %s: %w", u.ID, err)
			}
		}
		return nil
	}

	return s.cache.Mutate(ctx, boardID, apply, request)
}

// ReorderCards moves a card inside its column from index from to index to.
func (s *BoardSync) ReorderCards(ctx context.Context, boardID, columnID string, from, to int) error {
	defer s.lock(boardID)()

	detail, err := s.cache.Load(ctx, boardID)
	if err != nil {
		return err
	}
	return s.reorderCardsLocked(ctx, boardID, detail, columnID, from, to)
}

// MoveCard moves a card into another column at the given position. The plan
// is computed from one snapshot of both columns: the moved card, the
// destination cards shifted up and the source cards shifted down all sync in
// one operation.
func (s *BoardSync) MoveCard(ctx context.Context, boardID, cardID, destColumnID string, position int) error {
	defer s.lock(boardID)()

	detail, err := s.cache.Load(ctx, boardID)
	if err != nil {
		return err
	}

	var sourceColumnID string
	for _, card := range detail.Cards {
		if card.ID == cardID {
			sourceColumnID = card.ColumnID
			break
		}
	}
	if sourceColumnID == "" {
		return fmt.Errorf("card %s is not on board %s", cardID, boardID)
	}
	if sourceColumnID == destColumnID {
		siblings := cardSiblings(detail.Cards, sourceColumnID)
		from := indexOf(siblings, cardID)
		return s.reorderCardsLocked(ctx, boardID, detail, sourceColumnID, from, position)
	}

	source := cardSiblings(detail.Cards, sourceColumnID)
	dest := cardSiblings(detail.Cards, destColumnID)
	plan := ordering.PlanCardMove(source, dest, cardID, destColumnID, position)
	if len(plan) == 0 {
		return nil
	}

	apply := func(old *BoardDetail) *BoardDetail {
		next := *old
		next.Cards = make([]models.CardView, len(old.Cards))
		copy(next.Cards, old.Cards)
		for _, u := range plan {
			for i := range next.Cards {
				if next.Cards[i].ID != u.ID {
					continue
				}
				next.Cards[i].Order = u.Order
				if u.ColumnID != "" {
					next.Cards[i].ColumnID = u.ColumnID
				}
			}
		}
		return &next
	}

	request := func(ctx context.Context) error {
		for _, u := range plan {
			order := u.Order
			patch := CardPatch{Order: &order}
			if u.ColumnID != "" {
				columnID := u.ColumnID
				patch.ColumnID = &columnID
			}
			if _, err := s.client.UpdateCard(ctx, u.ID, patch); err != nil {
				return fmt.Errorf("updating card %s: %w", u.ID, err)
			}
		}
		return nil
	}

	return s.cache.Mutate(ctx, boardID, apply, request)
}

// reorderCardsLocked is ReorderCards for callers already holding the board
// lock.
func (s *BoardSync) reorderCardsLocked(ctx context.Context, boardID string, detail *BoardDetail, columnID string, from, to int) error {
	siblings := cardSiblings(detail.Cards, columnID)
	desired := ordering.MoveIndex(siblings, from, to)
	updates := ordering.Reorder(desired)
	if len(updates) == 0 {
		return nil
	}

	newOrders := make(map[string]int, len(desired))
	for i, sib := range desired {
		newOrders[sib.ID] = i
	}

	apply := func(old *BoardDetail) *BoardDetail {
		next := *old
		next.Cards = make([]models.CardView, len(old.Cards))
		for i, card := range old.Cards {
			if order, ok := newOrders[card.ID]; ok {
				card.Order = order
			}
			next.Cards[i] = card
		}
		return &next
	}

	request := func(ctx context.Context) error {
		for _, u := range updates {
			order := u.Order
			if _, err := s.client.UpdateCard(ctx, u.ID, CardPatch{Order: &order}); err != nil {
				return fmt.Errorf("updating card %s: %w", u.ID, err)
			}
		}
		return nil
	}

	return s.cache.Mutate(ctx, boardID, apply, request)
}

// lock acquires the board's reorder lock and returns the unlock func.
func (s *BoardSync) lock(boardID string) func() {
	s.mu.Lock()
	l, ok := s.locks[boardID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[boardID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func columnSiblings(columns []models.Column) []ordering.Sibling {
	siblings := make([]ordering.Sibling, len(columns))
	for i, col := range columns {
		siblings[i] = ordering.Sibling{ID: col.ID, Order: col.Order}
	}
	sort.SliceStable(siblings, func(i, j int) bool { return siblings[i].Order < siblings[j].Order })
	return siblings
}

func cardSiblings(cards []models.CardView, columnID string) []ordering.Sibling {
	var siblings []ordering.Sibling
	for _, card := range cards {
		if card.ColumnID == columnID {
			siblings = append(siblings, ordering.Sibling{ID: card.ID, Order: card.Order})
		}
	}
	sort.SliceStable(siblings, func(i, j int) bool { return siblings[i].Order < siblings[j].Order })
	return siblings
}

func indexOf(siblings []ordering.Sibling, id string) int {
	for i, sib := range siblings {
		if sib.ID == id {
			return i
		}
	}
	return -1
}
