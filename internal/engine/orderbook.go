package engine

import (
	"sort"

	"gpufutures.com/internal/domain"
	"gpufutures.com/internal/model"
)

// OrderBook owns the set of orders and their lifecycle states. Open
// orders are additionally kept in per-side FIFO queues ordered by
// arrival (order id), which is the priority rule the matcher uses.
//
// Like the other engine components it relies on the Engine for
// serialization.
type OrderBook struct {
	orders   map[uint64]*model.Order
	openBuy  []uint64
	openSell []uint64
	byTrader map[string][]uint64
	nextID   uint64
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		orders:   make(map[uint64]*model.Order),
		byTrader: make(map[string][]uint64),
		nextID:   1,
	}
}

// NextID returns the id the next order will be assigned.
func (b *OrderBook) NextID() uint64 {
	return b.nextID
}

// Add records a new Open order and assigns it the next id. Ids are
// monotonically increasing and never reused.
func (b *OrderBook) Add(order *model.Order) {
	order.ID = b.nextID
	b.nextID++
	order.Status = model.OrderStatusOpen

	b.orders[order.ID] = order
	b.byTrader[order.Trader] = append(b.byTrader[order.Trader], order.ID)
	b.enqueue(order)
}

// Get returns an order by id, or ErrUnknownOrder.
func (b *OrderBook) Get(orderID uint64) (*model.Order, error) {
	order, ok := b.orders[orderID]
	if !ok {
		return nil, domain.ErrUnknownOrder
	}
	return order, nil
}

// OpenQueue returns the FIFO queue of open order ids for one side.
func (b *OrderBook) OpenQueue(side model.OrderSide) []uint64 {
	if side == model.SideBuy {
		return b.openBuy
	}
	return b.openSell
}

// SetStatus advances an order's status and maintains the open queues.
// Status only moves forward; leaving Open removes the order from its
// side's queue.
func (b *OrderBook) SetStatus(order *model.Order, status model.OrderStatus) {
	if order.Status == model.OrderStatusOpen && status != model.OrderStatusOpen {
		b.dequeue(order)
	}
	order.Status = status
}

// Reopen undoes a just-applied terminal transition after a failed
// collateral release, putting the order back in its queue slot.
func (b *OrderBook) Reopen(order *model.Order) {
	order.Status = model.OrderStatusOpen
	b.enqueue(order)
	b.sortQueues()
}

// OrdersByTrader returns the trader's order ids in creation order.
func (b *OrderBook) OrdersByTrader(trader string) []uint64 {
	ids := b.byTrader[trader]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// Orders returns a snapshot copy of every order, sorted by id.
func (b *OrderBook) Orders() []model.Order {
	out := make([]model.Order, 0, len(b.orders))
	for _, order := range b.orders {
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// restore reinstates a persisted order at boot, keeping nextID ahead
// of every seen id.
func (b *OrderBook) restore(order model.Order) {
	copied := order
	b.orders[copied.ID] = &copied
	b.byTrader[copied.Trader] = append(b.byTrader[copied.Trader], copied.ID)
	if copied.Status == model.OrderStatusOpen {
		b.enqueue(&copied)
	}
	if copied.ID >= b.nextID {
		b.nextID = copied.ID + 1
	}
}

// sortQueues re-sorts the open queues after a restore; restores may
// arrive in any order.
func (b *OrderBook) sortQueues() {
	sort.Slice(b.openBuy, func(i, j int) bool { return b.openBuy[i] < b.openBuy[j] })
	sort.Slice(b.openSell, func(i, j int) bool { return b.openSell[i] < b.openSell[j] })
}

func (b *OrderBook) enqueue(order *model.Order) {
	if order.Side == model.SideBuy {
		b.openBuy = append(b.openBuy, order.ID)
	} else {
		b.openSell = append(b.openSell, order.ID)
	}
}

func (b *OrderBook) dequeue(order *model.Order) {
	queue := &b.openSell
	if order.Side == model.SideBuy {
		queue = &b.openBuy
	}
	for i, id := range *queue {
		if id == order.ID {
			*queue = append((*queue)[:i], (*queue)[i+1:]...)
			return
		}
	}
}
