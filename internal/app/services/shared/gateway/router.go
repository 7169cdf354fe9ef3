package gateway

import (
	"fmt"
	"sync"

	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
)

var (
	gatewayRouterInstance contracts.GatewayRouter
	onceGatewayRouter     sync.Once
)

// gatewayRouter holds the closed set of adapters. Selection asks each adapter
// whether it supports the method; there is no runtime discovery.
type gatewayRouter struct {
	adapters []contracts.PaymentGatewayService
}

func NewGatewayRouter(adapters ...contracts.PaymentGatewayService) contracts.GatewayRouter {
	onceGatewayRouter.Do(func() {
		gatewayRouterInstance = &gatewayRouter{adapters: adapters}
	})
	return gatewayRouterInstance
}

func (r *gatewayRouter) ForMethod(method models.PaymentMethod) (contracts.PaymentGatewayService, error) {
	for _, adapter := range r.adapters {
		if adapter.Supports(method) {
			return adapter, nil
		}
	}
	return nil, exceptions.ErrPaymentMethodUnsupported(fmt.Errorf("no gateway adapter for method %s", method))
}
