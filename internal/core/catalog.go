package core

import "fmt"

// Indicator is one of the fixed row labels of the procurement sheet.
type Indicator int

const (
	IndicatorPurchases Indicator = iota
	IndicatorSavings
	IndicatorAttendanceSLA
	IndicatorDeliverySLA
	IndicatorPaymentTermOverall
	IndicatorPaymentTermProductive
	IndicatorPaymentTermUnproductive
)

var indicatorLabels = map[Indicator]string{
	IndicatorPurchases:               "Compras R$",
	IndicatorSavings:                 "Saving",
	IndicatorAttendanceSLA:           "SLA de Atendimento",
	IndicatorDeliverySLA:             "SLA Entregas no Prazo",
	IndicatorPaymentTermOverall:      "PMP Geral",
	IndicatorPaymentTermProductive:   "PMP Produtivo",
	IndicatorPaymentTermUnproductive: "PMP Improdutivo",
}

// Indicators lists the catalogue in sheet order.
func Indicators() []Indicator {
	return []Indicator{
		IndicatorPurchases,
		IndicatorSavings,
		IndicatorAttendanceSLA,
		IndicatorDeliverySLA,
		IndicatorPaymentTermOverall,
		IndicatorPaymentTermProductive,
		IndicatorPaymentTermUnproductive,
	}
}

// Label is the exact text the sheet uses for this indicator.
func (i Indicator) Label() string { return indicatorLabels[i] }

func (i Indicator) String() string {
	if l, ok := indicatorLabels[i]; ok {
		return l
	}
	return fmt.Sprintf("Indicator(%d)", int(i))
}

// Dimension scopes an indicator row to an entity or an operational category.
// The zero value matches any dimension.
type Dimension struct {
	label string
}

var (
	AnyDimension          = Dimension{}
	DimensionProductive   = Dimension{label: "Produtivo"}
	DimensionUnproductive = Dimension{label: "Improdutivo"}
)

// EntityDimension scopes a row to one entity ("Total" or a buyer name).
func EntityDimension(e Entity) Dimension {
	return Dimension{label: e.String()}
}

func (d Dimension) Label() string { return d.label }

func (d Dimension) IsAny() bool { return d.label == "" }

func (d Dimension) String() string {
	if d.IsAny() {
		return "*"
	}
	return d.label
}

// MetricKey addresses one metric in the catalogue.
type MetricKey struct {
	Indicator Indicator
	Dimension Dimension
}

func (k MetricKey) String() string {
	return k.Indicator.String() + "/" + k.Dimension.String()
}

func PurchasesKey(e Entity) MetricKey {
	return MetricKey{Indicator: IndicatorPurchases, Dimension: EntityDimension(e)}
}

func SavingsKey(e Entity) MetricKey {
	return MetricKey{Indicator: IndicatorSavings, Dimension: EntityDimension(e)}
}

func AttendanceSLAKey(e Entity) MetricKey {
	return MetricKey{Indicator: IndicatorAttendanceSLA, Dimension: EntityDimension(e)}
}

// Entity-independent keys. Payment terms are published on the Total row.
var (
	DeliverySLAProductiveKey   = MetricKey{Indicator: IndicatorDeliverySLA, Dimension: DimensionProductive}
	DeliverySLAUnproductiveKey = MetricKey{Indicator: IndicatorDeliverySLA, Dimension: DimensionUnproductive}
	PaymentTermProductiveKey   = MetricKey{Indicator: IndicatorPaymentTermProductive, Dimension: EntityDimension(EntityTotal)}
	PaymentTermUnproductiveKey = MetricKey{Indicator: IndicatorPaymentTermUnproductive, Dimension: EntityDimension(EntityTotal)}
	PaymentTermOverallKey      = MetricKey{Indicator: IndicatorPaymentTermOverall, Dimension: AnyDimension}
)
