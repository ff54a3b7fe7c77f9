package checkout

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/spidlabs/spidpos/internal/domain/enum"
	"github.com/spidlabs/spidpos/internal/pos/api"
	"github.com/spidlabs/spidpos/internal/pos/repository"
	"github.com/spidlabs/spidpos/internal/pos/store"
	"github.com/spidlabs/spidpos/pkg/utils"
)

// ErrNoMerchantSelected is returned when a sale is rung up before a
// merchant has been picked.
var ErrNoMerchantSelected = errors.New("no merchant selected")

// ErrEmptyCart is returned when issuing a receipt from an empty cart
var ErrEmptyCart = errors.New("cart is empty")

// Connectivity reports whether the backend is reachable
type Connectivity interface {
	Online() bool
}

// Checkout issues receipts: remote-first when online, local-first with a
// queued upload when not.
type Checkout struct {
	receipts     *repository.Receipts
	client       *api.Client
	connectivity Connectivity
	merchantID   func() string
	currency     string
}

// New creates a checkout service. merchantID returns the currently
// selected tenant, empty when none is picked.
func New(receipts *repository.Receipts, client *api.Client, connectivity Connectivity, merchantID func() string, currency string) *Checkout {
	return &Checkout{
		receipts:     receipts,
		client:       client,
		connectivity: connectivity,
		merchantID:   merchantID,
		currency:     currency,
	}
}

// IssueReceipt turns the cart into a durable receipt. The
// clientReceiptId is minted exactly once before any network attempt, so
// a submission that dies mid-flight retries under the same identity and
// can never double-create on the backend. The cart is cleared only
// after a receipt has been durably stored.
func (c *Checkout) IssueReceipt(ctx context.Context, cart *Cart, payment enum.PaymentMethod) (*store.Receipt, error) {
	merchantID := c.merchantID()
	if merchantID == "" {
		return nil, ErrNoMerchantSelected
	}
	if cart.Empty() {
		return nil, ErrEmptyCart
	}

	items := cart.Items()
	totals := ComputeTotals(items)
	clientReceiptID := utils.GenerateUUID()
	issuedAt := time.Now().UTC()

	receipt := &store.Receipt{
		ID:            clientReceiptID,
		MerchantID:    merchantID,
		IssuedAt:      issuedAt,
		PaymentMethod: payment,
		Currency:      c.currency,
		SubtotalCents: totals.SubtotalCents,
		TaxCents:      totals.TaxCents,
		TotalCents:    totals.TotalCents,
	}
	for _, item := range items {
		receipt.Items = append(receipt.Items, store.ReceiptItem{
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			VATRate:        item.VATRate,
			LineTotalCents: item.LineTotalCents(),
		})
	}

	if c.connectivity.Online() && c.hasToken() {
		if server, err := c.createRemote(ctx, receipt); err == nil {
			cart.Clear()
			return server, nil
		} else {
			log.Printf("checkout: remote create failed, falling back to offline: %v", err)
		}
	}

	// Offline path. The receipt is stored PENDING_SYNC and queued; the
	// sync manager owns it from here.
	if err := c.receipts.Create(ctx, receipt, false); err != nil {
		return nil, err
	}

	cart.Clear()
	return receipt, nil
}

// hasToken reports whether a bearer token is available. Without one the
// remote attempt would only bounce off the auth middleware, so the sale
// goes straight to the offline path.
func (c *Checkout) hasToken() bool {
	return c.client.Tokens != nil && c.client.Tokens.Token() != ""
}

func (c *Checkout) createRemote(ctx context.Context, receipt *store.Receipt) (*store.Receipt, error) {
	payload := &api.CreateReceiptPayload{
		MerchantID:      receipt.MerchantID,
		ClientReceiptID: receipt.ID,
		IssuedAt:        receipt.IssuedAt,
		PaymentMethod:   string(receipt.PaymentMethod),
		Currency:        receipt.Currency,
		SubtotalCents:   receipt.SubtotalCents,
		TaxCents:        receipt.TaxCents,
		TotalCents:      receipt.TotalCents,
	}
	for _, item := range receipt.Items {
		payload.Items = append(payload.Items, api.ReceiptItemPayload{
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			VATRate:        item.VATRate,
			LineTotalCents: item.LineTotalCents,
		})
	}

	server, _, err := c.client.CreateReceipt(ctx, payload)
	if err != nil {
		return nil, err
	}

	if err := c.receipts.UpsertFromServer(ctx, server); err != nil {
		return nil, err
	}
	return c.receipts.GetByID(ctx, server.ClientReceiptID)
}
