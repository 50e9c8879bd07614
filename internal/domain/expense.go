package domain

import (
	"github.com/google/uuid"
)

// Phase identifies the travel stage an expense or shopping item belongs to.
type Phase string

const (
	PhasePre     Phase = "pre"
	PhaseDuring  Phase = "during"
	PhasePost    Phase = "post"
	PhaseSummary Phase = "summary"
)

// Category is the expense classification shown in the ledger. Values are
// the user-facing Traditional Chinese labels and double as the wire format.
type Category string

const (
	CategoryFlight           Category = "機票"
	CategoryAccommodation    Category = "住宿"
	CategoryInsurance        Category = "保險"
	CategorySIMWifi          Category = "SIM卡/網卡"
	CategoryTransportAirport Category = "機場接送"
	CategoryShoppingPre      Category = "行前採買"
	CategoryExchange         Category = "換匯"
	CategoryShopping         Category = "購物"
	CategoryFood             Category = "餐飲"
	CategorySouvenir         Category = "伴手禮/紀念品"
	CategoryTransport        Category = "交通"
	CategoryTicket           Category = "票券"
	CategoryHelpBuy          Category = "朋友代買"
	CategoryCosmetics        Category = "美妝保養"
	CategoryElectronics      Category = "3C家電"
	CategoryFashion          Category = "服飾鞋包"
	CategoryAccessories      Category = "飾品配件"
	CategoryTransportPost    Category = "回國交通"
	CategoryOther            Category = "其他"
)

// AllCategories lists every known category, used to validate AI output.
var AllCategories = []Category{
	CategoryFlight, CategoryAccommodation, CategoryInsurance, CategorySIMWifi,
	CategoryTransportAirport, CategoryShoppingPre, CategoryExchange,
	CategoryShopping, CategoryFood, CategorySouvenir, CategoryTransport,
	CategoryTicket, CategoryHelpBuy, CategoryCosmetics, CategoryElectronics,
	CategoryFashion, CategoryAccessories, CategoryTransportPost, CategoryOther,
}

// ParseCategory maps a raw string onto a known category, defaulting to 其他.
func ParseCategory(raw string) Category {
	for _, c := range AllCategories {
		if string(c) == raw {
			return c
		}
	}
	return CategoryOther
}

// PaymentMethod identifies how an expense was paid.
type PaymentMethod string

const (
	PaymentCreditCard  PaymentMethod = "信用卡"
	PaymentCashTWD     PaymentMethod = "台幣現金"
	PaymentCashForeign PaymentMethod = "外幣現金"
	PaymentICCard      PaymentMethod = "交通卡"

	// PaymentLegacyCash is the retired undifferentiated cash value still
	// found in old persisted records; the migrator remaps it.
	PaymentLegacyCash PaymentMethod = "現金"
)

// AllPaymentMethods lists the current payment methods.
var AllPaymentMethods = []PaymentMethod{
	PaymentCreditCard, PaymentCashTWD, PaymentCashForeign, PaymentICCard,
}

// ParsePaymentMethod maps a raw string onto a known method, defaulting to
// 台幣現金 when the value is unrecognized.
func ParsePaymentMethod(raw string) PaymentMethod {
	for _, p := range AllPaymentMethods {
		if string(p) == raw {
			return p
		}
	}
	return PaymentCashTWD
}

// SplitMethod selects how an expense is divided among people.
type SplitMethod string

const (
	SplitEqual   SplitMethod = "EQUAL"
	SplitPercent SplitMethod = "PERCENT"
	SplitExact   SplitMethod = "EXACT"
)

// SelfID is the reserved participant id for the account owner.
const SelfID = "me"

// Expense is one recorded cost in the ledger.
//
// Exactly one split structure is authoritative at a time: SplitMethod EQUAL
// reads Beneficiaries, PERCENT and EXACT read SplitAllocations. The inactive
// structure may hold stale data and must never be consulted.
type Expense struct {
	ID            string        `json:"id"`
	Description   string        `json:"description"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	ExchangeRate  float64       `json:"exchangeRate"`
	HandlingFee   float64       `json:"handlingFee,omitempty"`
	HomeAmount    float64       `json:"twdAmount"`
	Category      Category      `json:"category"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Phase         Phase         `json:"phase"`
	Date          string        `json:"date"`
	PayerID       string        `json:"payerId"`
	Beneficiaries []string      `json:"beneficiaries"`
	SplitMethod   SplitMethod   `json:"splitMethod"`
	// SplitAllocations maps participant id to home-currency amount.
	SplitAllocations map[string]float64 `json:"splitAllocations"`
	NeedsReview      bool               `json:"needsReview,omitempty"`
}

// Companion is a travel partner referenced by expenses. Deleting one does
// not repair references held by existing expenses.
type Companion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ShoppingItem is a to-buy entry tied to a phase. Purchasing links an
// expense by id and flips IsPurchased without removing the item.
type ShoppingItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsPurchased bool   `json:"isPurchased"`
	Phase       Phase  `json:"phase"`
}

// NewID generates an opaque unique id for ledger records.
func NewID() string {
	return uuid.NewString()
}

// NewExpense builds an expense with all defaulting applied in one place:
// a fresh id, home amount derived from amount and rate, EQUAL split over
// the payer when no split info is given, and a non-nil allocations map.
func NewExpense(e Expense) Expense {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.PayerID == "" {
		e.PayerID = SelfID
	}
	if e.SplitMethod == "" {
		e.SplitMethod = SplitEqual
	}
	if e.SplitMethod == SplitEqual && len(e.Beneficiaries) == 0 {
		e.Beneficiaries = []string{e.PayerID}
	}
	if e.SplitAllocations == nil {
		e.SplitAllocations = map[string]float64{}
	}
	if e.HomeAmount == 0 {
		e.HomeAmount = e.Amount * e.ExchangeRate
	}
	return e
}
