// Package network implements neural networks predicting per-action
// quantile value distributions
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet outlines networks that map batches of observation vectors
// to per-action quantile value estimates. The prediction for a batch
// has shape (batch, actions*quantiles), with the quantiles of action a
// occupying columns [a*quantiles, (a+1)*quantiles).
//
// A NeuralNet's forward pass lives in a computational graph and is run
// by an external virtual machine; SetInput only stages the input
// values for the next run.
type NeuralNet interface {
	// Graph returns the computational graph holding the network
	Graph() *G.ExprGraph

	// CloneWithBatch clones the network into a fresh graph with a new
	// input batch size, copying the current weights
	CloneWithBatch(int) (NeuralNet, error)

	BatchSize() int
	Features() int
	Actions() int
	Quantiles() int

	// SetInput stages a flattened (batch x features) observation
	// matrix as the input to the next forward pass
	SetInput([]float64) error

	// Set overwrites the network's weights with those of another
	// network of identical architecture
	Set(NeuralNet) error

	// ResampleNoise redraws any stochastic exploration parameters the
	// network carries. Deterministic networks treat this as a no-op.
	ResampleNoise()

	// Learnables returns the weight nodes of the network
	Learnables() G.Nodes

	// Model returns the weight nodes with their gradients for use by a
	// solver
	Model() []G.ValueGrad

	// Prediction returns the output node of the network's forward pass
	Prediction() *G.Node

	// Output returns the value of the prediction node as of the last
	// virtual machine run
	Output() G.Value

	// GobEncode and GobDecode serialize the network's weights. Decoding
	// requires a receiver constructed with the same architecture.
	GobEncode() ([]byte, error)
	GobDecode([]byte) error
}
