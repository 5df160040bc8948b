package network

import (
	G "gorgonia.org/gorgonia"
)

// Activation represents an activation function type
type Activation func(x *G.Node) (*G.Node, error)

// ReLU returns the rectified linear unit activation
func ReLU() Activation {
	return func(x *G.Node) (*G.Node, error) {
		return G.Rectify(x)
	}
}

// Identity returns the identity activation
func Identity() Activation {
	return func(x *G.Node) (*G.Node, error) {
		return x, nil
	}
}

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     Activation
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x = G.Must(G.Mul(x, f.weights))
	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.bias, nil, []byte{0}))
	}
	if f.act == nil {
		return x, nil
	}
	return f.act(x)
}

// cloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) cloneTo(g *G.ExprGraph) *fcLayer {
	var newBias *G.Node
	if f.bias != nil {
		newBias = f.bias.CloneTo(g)
	}

	return &fcLayer{
		weights: f.weights.CloneTo(g),
		bias:    newBias,
		act:     f.act,
	}
}
