package network

import (
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func newTestNet(t *testing.T, batch int) NeuralNet {
	g := G.NewGraph()
	net, err := NewQuantileMLP(4, batch, 3, 8, g, []int{16}, G.GlorotU(1.0))
	if err != nil {
		t.Fatal(err)
	}
	return net
}

// weightData returns the flattened values of every learnable in the
// network
func weightData(net NeuralNet) [][]float64 {
	data := make([][]float64, 0, len(net.Learnables()))
	for _, node := range net.Learnables() {
		data = append(data, node.Value().Data().([]float64))
	}
	return data
}

// zeroWeights overwrites every learnable in the network with zeros
func zeroWeights(t *testing.T, net NeuralNet) {
	for _, node := range net.Learnables() {
		zeros := tensor.New(tensor.WithShape(node.Shape()...),
			tensor.WithBacking(make([]float64, node.Shape().TotalSize())))
		if err := G.Let(node, zeros); err != nil {
			t.Fatal(err)
		}
	}
}

func sameWeights(a, b NeuralNet) bool {
	aData, bData := weightData(a), weightData(b)
	if len(aData) != len(bData) {
		return false
	}
	for i := range aData {
		if len(aData[i]) != len(bData[i]) {
			return false
		}
		for j := range aData[i] {
			if aData[i][j] != bData[i][j] {
				return false
			}
		}
	}
	return true
}

// TestQuantileMLPForward checks the forward pass output shape for a
// batch of observations
func TestQuantileMLPForward(t *testing.T) {
	batch := 2
	net := newTestNet(t, batch)

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	input := make([]float64, batch*net.Features())
	for i := range input {
		input[i] = 0.01 * float64(i)
	}
	if err := net.SetInput(input); err != nil {
		t.Fatal(err)
	}
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}
	defer vm.Reset()

	output := net.Output().Data().([]float64)
	if len(output) != batch*net.Actions()*net.Quantiles() {
		t.Fatalf("expected %v outputs, got %v",
			batch*net.Actions()*net.Quantiles(), len(output))
	}
}

// TestQuantileMLPCloneWithBatch checks that cloning preserves weights
// and architecture while changing the batch size
func TestQuantileMLPCloneWithBatch(t *testing.T) {
	net := newTestNet(t, 1)

	clone, err := net.CloneWithBatch(4)
	if err != nil {
		t.Fatal(err)
	}

	if clone.BatchSize() != 4 {
		t.Errorf("expected batch size 4, got %v", clone.BatchSize())
	}
	if clone.Features() != net.Features() || clone.Actions() != net.Actions() ||
		clone.Quantiles() != net.Quantiles() {
		t.Error("expected clone to preserve architecture")
	}
	if clone.Graph() == net.Graph() {
		t.Error("expected clone to live in a fresh graph")
	}
	if !sameWeights(net, clone) {
		t.Error("expected clone to copy the source weights")
	}
}

// TestQuantileMLPSet checks that Set hard copies weights between
// networks of identical architecture
func TestQuantileMLPSet(t *testing.T) {
	source := newTestNet(t, 1)
	dest := newTestNet(t, 1)

	zeroWeights(t, dest)
	if sameWeights(source, dest) {
		t.Fatal("expected zeroed and initialized weights to differ")
	}

	if err := dest.Set(source); err != nil {
		t.Fatal(err)
	}
	if !sameWeights(source, dest) {
		t.Error("expected identical weights after Set")
	}
}

// TestQuantileMLPGob checks the weight serialization round trip
func TestQuantileMLPGob(t *testing.T) {
	source := newTestNet(t, 1)
	dest := newTestNet(t, 1)
	zeroWeights(t, dest)

	encoded, err := source.GobEncode()
	if err != nil {
		t.Fatal(err)
	}
	if err := dest.GobDecode(encoded); err != nil {
		t.Fatal(err)
	}

	if !sameWeights(source, dest) {
		t.Error("expected identical weights after decoding")
	}
}
