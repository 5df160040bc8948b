package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// quantileMLP implements a multi-layered perceptron whose output heads
// are the quantiles of each action's value distribution
type quantileMLP struct {
	g      *G.ExprGraph
	layers []*fcLayer
	input  *G.Node

	numActions   int
	numQuantiles int
	numInputs    int
	batchSize    int
	hiddenSizes  []int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewQuantileMLP creates and returns a new MLP predicting quantiles
// quantile values for each of actions actions from feature vectors of
// features features. The graph g is populated with the network.
//
// The network has len(hiddenSizes) hidden layers with ReLU activations
// and bias units, plus a final linear layer of actions*quantiles
// output heads. The parameter init determines the weight
// initialization scheme.
func NewQuantileMLP(features, batch, actions, quantiles int,
	g *G.ExprGraph, hiddenSizes []int, init G.InitWFn) (NeuralNet, error) {
	if features < 1 || batch < 1 {
		return nil, fmt.Errorf("newquantilemlp: invalid input shape "+
			"(%v, %v)", batch, features)
	}
	if actions < 1 || quantiles < 1 {
		return nil, fmt.Errorf("newquantilemlp: invalid output shape "+
			"(%v, %v)", actions, quantiles)
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	net := &quantileMLP{
		g:            g,
		input:        input,
		numActions:   actions,
		numQuantiles: quantiles,
		numInputs:    features,
		batchSize:    batch,
		hiddenSizes:  hiddenSizes,
	}
	net.layers = addFCLayers(g, features, actions*quantiles, hiddenSizes,
		init)

	if err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newquantilemlp: could not compute forward "+
			"pass: %v", err)
	}

	return net, nil
}

// addFCLayers constructs the fully connected layers of the network:
// hidden layers with ReLU activations followed by a linear output
// layer
func addFCLayers(g *G.ExprGraph, features, outputs int, hiddenSizes []int,
	init G.InitWFn) []*fcLayer {
	sizes := make([]int, len(hiddenSizes)+1)
	copy(sizes, hiddenSizes)
	sizes[len(sizes)-1] = outputs

	layers := make([]*fcLayer, len(sizes))
	prev := features
	for i, size := range sizes {
		act := ReLU()
		if i == len(sizes)-1 {
			act = nil
		}

		layers[i] = &fcLayer{
			weights: G.NewMatrix(g, tensor.Float64, G.WithShape(prev, size),
				G.WithName(fmt.Sprintf("L%vW", i)), G.WithInit(init)),
			bias: G.NewMatrix(g, tensor.Float64, G.WithShape(1, size),
				G.WithName(fmt.Sprintf("L%vB", i)), G.WithInit(G.Zeroes())),
			act: act,
		}
		prev = size
	}
	return layers
}

// fwd performs the forward pass of the quantileMLP on the input node
func (q *quantileMLP) fwd(input *G.Node) error {
	pred := input
	var err error
	for i, l := range q.layers {
		if pred, err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"layer %v: %v", i, err)
		}
	}

	q.prediction = pred
	G.Read(q.prediction, &q.predVal)

	return nil
}

// Graph returns the computational graph of the quantileMLP
func (q *quantileMLP) Graph() *G.ExprGraph {
	return q.g
}

// CloneWithBatch clones the quantileMLP into a fresh graph with a new
// input batch size
func (q *quantileMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("clonewithbatch: invalid batch size %v",
			batchSize)
	}

	graph := G.NewGraph()
	input := G.NewMatrix(graph, tensor.Float64,
		G.WithShape(batchSize, q.numInputs), G.WithName("input"),
		G.WithInit(G.Zeroes()))

	layers := make([]*fcLayer, len(q.layers))
	for i := range q.layers {
		layers[i] = q.layers[i].cloneTo(graph)
	}

	net := &quantileMLP{
		g:            graph,
		layers:       layers,
		input:        input,
		numActions:   q.numActions,
		numQuantiles: q.numQuantiles,
		numInputs:    q.numInputs,
		batchSize:    batchSize,
		hiddenSizes:  q.hiddenSizes,
	}
	if err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithbatch: %v", err)
	}

	return net, nil
}

// BatchSize returns the batch size of inputs to the network
func (q *quantileMLP) BatchSize() int {
	return q.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input
func (q *quantileMLP) Features() int {
	return q.numInputs
}

// Actions returns the number of actions the network predicts value
// distributions for
func (q *quantileMLP) Actions() int {
	return q.numActions
}

// Quantiles returns the number of quantiles predicted per action
func (q *quantileMLP) Quantiles() int {
	return q.numQuantiles
}

// SetInput sets the value of the input node before running the forward
// pass
func (q *quantileMLP) SetInput(input []float64) error {
	if len(input) != q.numInputs*q.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs \n\twant(%v)"+
			"\n\thave(%v)", q.numInputs*q.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(q.input.Shape()...),
	)
	return G.Let(q.input, inputTensor)
}

// Set sets the weights of the quantileMLP to be equal to the weights
// of another network of identical architecture
func (q *quantileMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := q.Learnables()
	if len(nodes) != len(sourceNodes) {
		return fmt.Errorf("set: architecture mismatch \n\twant(%v weights)"+
			"\n\thave(%v weights)", len(nodes), len(sourceNodes))
	}

	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// ResampleNoise implements the NeuralNet interface. The quantileMLP
// has no stochastic parameters.
func (q *quantileMLP) ResampleNoise() {}

// Learnables returns the learnable nodes in the quantileMLP
func (q *quantileMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if q.learnables == nil {
		q.learnables = make(G.Nodes, 0, 2*len(q.layers))
		for _, l := range q.layers {
			q.learnables = append(q.learnables, l.weights)
			if l.bias != nil {
				q.learnables = append(q.learnables, l.bias)
			}
		}
	}
	return q.learnables
}

// Model returns the learnable nodes with their gradients
func (q *quantileMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if q.model == nil {
		q.model = make([]G.ValueGrad, 0, 2*len(q.layers))
		for _, node := range q.Learnables() {
			q.model = append(q.model, node)
		}
	}
	return q.model
}

// Prediction returns the node of the computational graph that stores
// the output of the quantileMLP
func (q *quantileMLP) Prediction() *G.Node {
	return q.prediction
}

// Output returns the output of the quantileMLP as of the last virtual
// machine run
func (q *quantileMLP) Output() G.Value {
	return q.predVal
}

// GobEncode implements the gob.GobEncoder interface, serializing the
// network's weight values
func (q *quantileMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	learnables := q.Learnables()
	if err := enc.Encode(len(learnables)); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode weight count: %v",
			err)
	}

	for _, node := range learnables {
		t := node.Value().(*tensor.Dense)
		if err := enc.Encode(t.Shape()); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode shape: %v",
				err)
		}
		if err := enc.Encode(t.Data().([]float64)); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode weights: %v",
				err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The receiver must
// have been constructed with the same architecture that produced the
// encoding.
func (q *quantileMLP) GobDecode(encoded []byte) error {
	dec := gob.NewDecoder(bytes.NewBuffer(encoded))

	var count int
	if err := dec.Decode(&count); err != nil {
		return fmt.Errorf("gobdecode: could not decode weight count: %v", err)
	}

	learnables := q.Learnables()
	if count != len(learnables) {
		return fmt.Errorf("gobdecode: architecture mismatch \n\twant(%v "+
			"weights)\n\thave(%v weights)", len(learnables), count)
	}

	for _, node := range learnables {
		var shape tensor.Shape
		if err := dec.Decode(&shape); err != nil {
			return fmt.Errorf("gobdecode: could not decode shape: %v", err)
		}

		var data []float64
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("gobdecode: could not decode weights: %v", err)
		}

		t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
		if err := G.Let(node, t); err != nil {
			return fmt.Errorf("gobdecode: could not set weights: %v", err)
		}
	}

	return nil
}
