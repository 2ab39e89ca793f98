package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/fjod/butchershop/internal/cart"
	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/internal/storage"
)

type checkoutTestContext struct {
	identity *domain.Identity
	profile  *domain.Profile
	cart     *cart.Store
	orders   *MockOrderCreator
	flow     *Flow
	err      error
}

func (c *checkoutTestContext) reset() {
	c.identity = nil
	c.profile = nil
	c.cart = cart.NewStore(cart.StorageKey("feature"), storage.NewMemory(), nil)
	_ = c.cart.Load(context.Background())
	c.orders = NewMockOrderCreator()
	c.flow = nil
	c.err = nil
}

func (c *checkoutTestContext) aSignedInShopperWithACompletedProfile(userID string) error {
	c.identity = &domain.Identity{UserID: userID, Email: userID + "@example.com"}
	c.profile = &domain.Profile{UserID: userID, FullName: "Shopper", HouseNo: "1", Street: "Main"}
	return nil
}

func (c *checkoutTestContext) theCartHolds(idA string, priceA int, idB string, priceB int) error {
	ctx := context.Background()
	if err := c.cart.Add(ctx, domain.CartItem{ID: idA, Price: int64(priceA)}); err != nil {
		return err
	}
	return c.cart.Add(ctx, domain.CartItem{ID: idB, Price: int64(priceB)})
}

func (c *checkoutTestContext) theOrderStoreIsUnavailable() error {
	c.orders.SetErr(errors.New("document store unavailable"))
	return nil
}

func (c *checkoutTestContext) theShopperIsSignedOut() error {
	c.identity = nil
	return nil
}

func (c *checkoutTestContext) theShopperBeginsCheckout() error {
	c.flow, c.err = Begin(c.identity, c.profile, c.cart, c.orders, "", nil)
	return nil
}

func (c *checkoutTestContext) theShopperContinuesToOrderReview() error {
	if c.flow == nil {
		return errors.New("checkout not started")
	}
	return c.flow.Continue()
}

func (c *checkoutTestContext) theShopperGoesBack() error {
	if c.flow == nil {
		return errors.New("checkout not started")
	}
	return c.flow.Back()
}

func (c *checkoutTestContext) theShopperPlacesTheOrder() error {
	if c.flow == nil {
		return errors.New("checkout not started")
	}
	_, c.err = c.flow.PlaceOrder(context.Background())
	return nil
}

func (c *checkoutTestContext) exactlyOrderExistsWithTotal(count int, total int) error {
	if err := c.exactlyOrdersExist(count); err != nil {
		return err
	}
	if got := c.orders.Orders[0].Total; got != int64(total) {
		return fmt.Errorf("expected total %d, got %d", total, got)
	}
	return nil
}

func (c *checkoutTestContext) exactlyOrdersExist(count int) error {
	if got := c.orders.Count(); got != count {
		return fmt.Errorf("expected %d orders, got %d", count, got)
	}
	return nil
}

func (c *checkoutTestContext) theCartIsEmpty() error {
	if n := c.cart.Count(); n != 0 {
		return fmt.Errorf("expected empty cart, got %d items", n)
	}
	return nil
}

func (c *checkoutTestContext) theCartStillHolds(idA, idB string) error {
	items := c.cart.Items()
	if len(items) != 2 || items[0].ID != idA || items[1].ID != idB {
		return fmt.Errorf("unexpected cart contents %+v", items)
	}
	return nil
}

func (c *checkoutTestContext) theCheckoutStateIs(state string) error {
	if c.flow == nil {
		return errors.New("checkout not started")
	}
	if got := c.flow.State(); got != State(state) {
		return fmt.Errorf("expected state %s, got %s", state, got)
	}
	return nil
}

func (c *checkoutTestContext) placingTheOrderFailed() error {
	if c.err == nil {
		return errors.New("expected order placement to fail")
	}
	return nil
}

func (c *checkoutTestContext) checkoutIsRefusedForMissingSignIn() error {
	if !errors.Is(c.err, ErrUnauthenticated) {
		return fmt.Errorf("expected ErrUnauthenticated, got %v", c.err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a signed-in shopper "([^"]*)" with a completed profile$`, tc.aSignedInShopperWithACompletedProfile)
	ctx.Step(`^the cart holds "([^"]*)" priced (\d+) and "([^"]*)" priced (\d+)$`, tc.theCartHolds)
	ctx.Step(`^the order store is unavailable$`, tc.theOrderStoreIsUnavailable)
	ctx.Step(`^the shopper is signed out$`, tc.theShopperIsSignedOut)

	// When steps
	ctx.Step(`^the shopper begins checkout$`, tc.theShopperBeginsCheckout)
	ctx.Step(`^the shopper continues to order review$`, tc.theShopperContinuesToOrderReview)
	ctx.Step(`^the shopper goes back$`, tc.theShopperGoesBack)
	ctx.Step(`^the shopper places the order$`, tc.theShopperPlacesTheOrder)

	// Then steps
	ctx.Step(`^exactly (\d+) order exists with total (\d+)$`, tc.exactlyOrderExistsWithTotal)
	ctx.Step(`^exactly (\d+) orders exist$`, tc.exactlyOrdersExist)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the cart still holds "([^"]*)" and "([^"]*)"$`, tc.theCartStillHolds)
	ctx.Step(`^the checkout state is "([^"]*)"$`, tc.theCheckoutStateIs)
	ctx.Step(`^placing the order failed$`, tc.placingTheOrderFailed)
	ctx.Step(`^checkout is refused for missing sign-in$`, tc.checkoutIsRefusedForMissingSignIn)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
