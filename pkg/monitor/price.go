package monitor

import (
	"context"

	"github.com/paulthvt/solareco/pkg/types"
)

// PriceAPI is the slice of the vendor client the tariff loop uses.
type PriceAPI interface {
	ElectricityPrice(ctx context.Context) (types.ElectricityPrice, error)
}

// Price polls the tempo tariff calendar. Prices change at most daily so the
// cadence is long, with a shorter retry when a fetch fails.
type Price struct {
	api  PriceAPI
	slot Slot[types.ElectricityPrice]
	loop *loop[types.ElectricityPrice]
}

func NewPrice(apiClient PriceAPI, sessions SessionRecoverer) *Price {
	m := &Price{api: apiClient}
	m.loop = &loop[types.ElectricityPrice]{
		domain:  "price",
		slot:    &m.slot,
		fetch:   m.FetchOnce,
		delay:   fixedDelay[types.ElectricityPrice](priceInterval, priceRetryDelay),
		recover: sessions.Recover,
	}
	return m
}

func (m *Price) Run(ctx context.Context) {
	m.loop.run(ctx)
}

func (m *Price) Latest() (Result[types.ElectricityPrice], bool) {
	return m.slot.Latest()
}

func (m *Price) Subscribe() <-chan Result[types.ElectricityPrice] {
	return m.slot.Subscribe()
}

// FetchOnce fetches the tariff calendar. The tariff is national, it needs no
// selected site.
func (m *Price) FetchOnce(ctx context.Context) (types.ElectricityPrice, error) {
	return m.api.ElectricityPrice(ctx)
}
