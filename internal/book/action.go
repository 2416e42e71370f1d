// Package book holds the option-book state machine: a pure transition
// function over domain.State driven by a closed set of actions.
package book

import (
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// Action is one of the variants declared in this package.
type Action interface {
	isAction()
}

// AddLeg appends a leg. A non-nil Template replaces the default leg but
// still receives a fresh id.
type AddLeg struct {
	Template *domain.Leg `json:"template,omitempty"`
}

// RemoveLeg deletes the leg with ID. Unknown ids are ignored.
type RemoveLeg struct {
	ID int `json:"id"`
}

// LegField names an editable leg attribute.
type LegField string

const (
	FieldStrike   LegField = "strike"
	FieldPrice    LegField = "price"
	FieldQuantity LegField = "quantity"
	FieldExpiry   LegField = "expiry"
	FieldType     LegField = "type"
	FieldSale     LegField = "sale"
	FieldIV       LegField = "iv"
	FieldEditing  LegField = "editing"
	FieldHidden   LegField = "hidden"
)

// ModifyLeg sets Field on the leg with ID to Value. A nil Value clears the
// user override of strike, price or expiry.
type ModifyLeg struct {
	ID    int      `json:"id"`
	Field LegField `json:"field"`
	Value *string  `json:"value"`
}

// SetAllExpirations applies one expiry label to every leg.
type SetAllExpirations struct {
	Label string `json:"value"`
}

// ModifySymbol updates the underlying. Only non-nil fields are applied.
type ModifySymbol struct {
	Ticker         *string            `json:"symbol,omitempty"`
	UserPrice      *string            `json:"userPrice,omitempty"`
	ClearUserPrice bool               `json:"clearUserPrice,omitempty"`
	ActualPrice    *float64           `json:"actualPrice,omitempty"`
	Name           *string            `json:"name,omitempty"`
	Meta           *domain.OptionMeta `json:"meta,omitempty"`
}

// DisplayField names a display preference.
type DisplayField string

const (
	DisplayProfit   DisplayField = "profit"
	DisplayMinPrice DisplayField = "minPrice"
	DisplayMaxPrice DisplayField = "maxPrice"
)

// SetDisplay updates one display preference. For the price bounds an empty
// or non-positive Value removes the override.
type SetDisplay struct {
	Field DisplayField `json:"field"`
	Value string       `json:"value"`
}

// ReplaceState swaps in a whole state, e.g. one loaded from a link.
type ReplaceState struct {
	State domain.State `json:"state"`
}

// ClearLegs empties the book and keeps everything else.
type ClearLegs struct{}

func (AddLeg) isAction()            {}
func (RemoveLeg) isAction()         {}
func (ModifyLeg) isAction()         {}
func (SetAllExpirations) isAction() {}
func (ModifySymbol) isAction()      {}
func (SetDisplay) isAction()        {}
func (ReplaceState) isAction()      {}
func (ClearLegs) isAction()         {}

// Envelope is the wire form of an action.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	typeAdd            = "add"
	typeRemove         = "remove"
	typeModifyOption   = "modify-option"
	typeModifyExpiries = "modify-expirations"
	typeModifySymbol   = "modify-symbol"
	typeDisplay        = "display"
	typeSetState       = "set-state"
	typeClearOptions   = "clear-options"
)

// DecodeAction parses an envelope into its action.
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("book: decode envelope: %w", err)
	}
	return env.Action()
}

// Action converts the envelope into its typed action.
func (e Envelope) Action() (Action, error) {
	var a Action
	switch e.Type {
	case typeAdd:
		a = &AddLeg{}
	case typeRemove:
		a = &RemoveLeg{}
	case typeModifyOption:
		a = &ModifyLeg{}
	case typeModifyExpiries:
		a = &SetAllExpirations{}
	case typeModifySymbol:
		a = &ModifySymbol{}
	case typeDisplay:
		a = &SetDisplay{}
	case typeSetState:
		a = &ReplaceState{}
	case typeClearOptions:
		return ClearLegs{}, nil
	default:
		return nil, fmt.Errorf("book: unknown action type %q", e.Type)
	}

	if len(e.Payload) > 0 && string(e.Payload) != "null" {
		if err := json.Unmarshal(e.Payload, a); err != nil {
			return nil, fmt.Errorf("book: decode %s payload: %w", e.Type, err)
		}
	}

	switch v := a.(type) {
	case *AddLeg:
		return *v, nil
	case *RemoveLeg:
		return *v, nil
	case *ModifyLeg:
		return *v, nil
	case *SetAllExpirations:
		return *v, nil
	case *ModifySymbol:
		return *v, nil
	case *SetDisplay:
		return *v, nil
	case *ReplaceState:
		return *v, nil
	}
	return nil, fmt.Errorf("book: unhandled action type %q", e.Type)
}

// EncodeAction wraps a in its envelope.
func EncodeAction(a Action) (Envelope, error) {
	var typ string
	switch a.(type) {
	case AddLeg:
		typ = typeAdd
	case RemoveLeg:
		typ = typeRemove
	case ModifyLeg:
		typ = typeModifyOption
	case SetAllExpirations:
		typ = typeModifyExpiries
	case ModifySymbol:
		typ = typeModifySymbol
	case SetDisplay:
		typ = typeDisplay
	case ReplaceState:
		typ = typeSetState
	case ClearLegs:
		return Envelope{Type: typeClearOptions}, nil
	default:
		return Envelope{}, fmt.Errorf("book: unknown action %T", a)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("book: encode %s payload: %w", typ, err)
	}
	return Envelope{Type: typ, Payload: payload}, nil
}
