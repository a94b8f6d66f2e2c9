package mobile

import (
	"github.com/otelwasm/mobilert/value"
)

const trainingAttr = "training"

// Train sets the training flag of the module and every nested submodule.
// Every object in the tree must declare a training attribute.
func (m *Module) Train(on bool) {
	setTrainRecurse(m.object, on)
}

// Eval is Train(false)
func (m *Module) Eval() {
	m.Train(false)
}

// IsTraining reports the training flag of the root object. A module without
// the flag is considered to be training.
func (m *Module) IsTraining() bool {
	if v, ok := m.object.Attr(trainingAttr); ok {
		return v.ToBool()
	}
	return true
}

// Parameters returns every tensor reachable from the root object, depth
// first in attribute order. A tensor referenced from several slots appears
// once per slot.
func (m *Module) Parameters() []*value.Tensor {
	var params []*value.Tensor
	slotParamsRecurse(m.object, &params)
	return params
}

// NamedParameters returns the tensors reachable from the root object keyed
// by their dotted attribute path.
//
// Only tensors that require grad are included. Object types do not record
// which attributes are parameters, so requiring grad stands in for it.
func (m *Module) NamedParameters() map[string]*value.Tensor {
	params := make(map[string]*value.Tensor)
	slotNamedParamsRecurse(m.object, params, "")
	return params
}

func setTrainRecurse(obj *value.Object, on bool) {
	slot, ok := obj.Type().FindAttributeSlot(trainingAttr)
	if !ok {
		panic("mobile: 'training' attribute not found in " + obj.Type().Name()) // Bug: every module type declares training
	}
	obj.SetSlot(slot, value.Bool(on))
	for _, s := range obj.Slots() {
		if s.IsObject() {
			setTrainRecurse(s.ToObject(), on)
		}
	}
}

func slotParamsRecurse(obj *value.Object, params *[]*value.Tensor) {
	for _, s := range obj.Slots() {
		switch {
		case s.IsTensor():
			*params = append(*params, s.ToTensor())
		case s.IsObject():
			slotParamsRecurse(s.ToObject(), params)
		}
	}
}

func slotNamedParamsRecurse(obj *value.Object, params map[string]*value.Tensor, prefix string) {
	for i, s := range obj.Slots() {
		name := obj.Type().AttributeName(i)
		if prefix != "" {
			name = prefix + "." + name
		}
		switch {
		case s.IsTensor() && s.ToTensor().RequiresGrad():
			params[name] = s.ToTensor()
		case s.IsObject():
			slotNamedParamsRecurse(s.ToObject(), params, name)
		}
	}
}
