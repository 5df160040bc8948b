// Package qrdqn implements the quantile regression deep Q-learning
// algorithm
package qrdqn

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/qrdqn/checkpointer"
	"github.com/samuelfneumann/qrdqn/environment"
	"github.com/samuelfneumann/qrdqn/expreplay"
	"github.com/samuelfneumann/qrdqn/network"
	"github.com/samuelfneumann/qrdqn/utils/floatutils"
)

const (
	onlineNetFile = "online_net.bin"
	targetNetFile = "target_net.bin"
)

// QRDQN learns a quantile approximation of each action's return
// distribution. Three copies of one quantile network are held: a
// batch-1 policy network for action selection, a training network
// whose weights are adapted by the solver, and a target network
// providing the bootstrap targets, synced on command via SyncTarget.
//
// The loss is the quantile Huber loss: every predicted quantile is
// paired with every target quantile, the Huber loss (kappa = 1) of
// each pairwise difference is weighted by |tau - 1{diff < 0}| for the
// predicted quantile's fraction tau, and the result is averaged.
// Importance sampling weights from prioritized replay scale each
// sample's contribution.
type QRDQN struct {
	policyNet network.NeuralNet
	policyVM  G.VM
	trainNet  network.NeuralNet
	trainVM   G.VM
	targetNet network.NeuralNet
	targetVM  G.VM

	solver G.Solver

	// Input nodes of the training graph fed per batch
	selectedActions *G.Node // (batch, actions*quantiles) one-hot mask
	targetQuantiles *G.Node // (batch, quantiles)
	isWeights       *G.Node // (batch, 1, 1)

	gammaN       float64
	features     int
	numActions   int
	numQuantiles int
	batchSize    int
}

// New creates and returns a new QRDQN learner for an environment
func New(env environment.Environment, config Config) (*QRDQN, error) {
	if env.ActionSpec().Cardinality != environment.Discrete {
		return nil, fmt.Errorf("qrdqn: cannot use non-discrete actions")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	features := environment.ObservationLength(env)
	numActions := environment.NumActions(env)
	numQuantiles := config.Quantiles
	batchSize := config.BatchSize

	// Policy network for selecting single actions
	g := G.NewGraph()
	policyNet, err := network.NewQuantileMLP(features, 1, numActions,
		numQuantiles, g, config.HiddenSizes, G.GlorotU(1.0))
	if err != nil {
		return nil, fmt.Errorf("qrdqn: could not create policy network: %v",
			err)
	}
	policyVM := G.NewTapeMachine(g)

	// Training network which learns the weights
	trainNet, err := policyNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("qrdqn: could not create training network: %v",
			err)
	}

	// Target network providing the update target
	targetNet, err := policyNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("qrdqn: could not create target network: %v",
			err)
	}
	targetVM := G.NewTapeMachine(targetNet.Graph())

	selectedActions, targetQuantiles, isWeights, err := addLoss(trainNet,
		numActions, numQuantiles, batchSize)
	if err != nil {
		return nil, fmt.Errorf("qrdqn: could not build loss: %v", err)
	}

	trainVM := G.NewTapeMachine(trainNet.Graph(),
		G.BindDualValues(trainNet.Learnables()...))

	solverOpts := []G.SolverOpt{
		G.WithLearnRate(config.LearningRate),
		G.WithEps(1e-2 / float64(batchSize)),
	}
	if config.GradClip > 0 {
		solverOpts = append(solverOpts, G.WithClip(config.GradClip))
	}

	return &QRDQN{
		policyNet:       policyNet,
		policyVM:        policyVM,
		trainNet:        trainNet,
		trainVM:         trainVM,
		targetNet:       targetNet,
		targetVM:        targetVM,
		solver:          G.NewAdamSolver(solverOpts...),
		selectedActions: selectedActions,
		targetQuantiles: targetQuantiles,
		isWeights:       isWeights,
		gammaN:          math.Pow(config.Gamma, float64(config.MultiStep)),
		features:        features,
		numActions:      numActions,
		numQuantiles:    numQuantiles,
		batchSize:       batchSize,
	}, nil
}

// addLoss adds the quantile Huber loss and its gradient to the
// training network's graph, returning the input nodes that must be
// fed before each run
func addLoss(trainNet network.NeuralNet, numActions, numQuantiles,
	batchSize int) (*G.Node, *G.Node, *G.Node, error) {
	g := trainNet.Graph()

	selectedActions := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, numActions*numQuantiles),
		G.WithName("selectedActions"))
	targetQuantiles := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, numQuantiles), G.WithName("targetQuantiles"))
	isWeights := G.NewTensor(g, tensor.Float64, 3,
		G.WithShape(batchSize, 1, 1), G.WithName("isWeights"))

	// Quantiles of the actions taken in the batch: mask out all other
	// actions and collapse the action dimension
	chosen := G.Must(G.HadamardProd(trainNet.Prediction(), selectedActions))
	chosen = G.Must(G.Reshape(chosen,
		tensor.Shape{batchSize, numActions, numQuantiles}))
	predicted := G.Must(G.Sum(chosen, 1)) // (batch, quantiles)

	// Pairwise differences u[b][i][j] = target_j - predicted_i
	predicted3 := G.Must(G.Reshape(predicted,
		tensor.Shape{batchSize, numQuantiles, 1}))
	target3 := G.Must(G.Reshape(targetQuantiles,
		tensor.Shape{batchSize, 1, numQuantiles}))
	u := G.Must(G.BroadcastSub(target3, predicted3, []byte{1}, []byte{2}))

	// Huber loss with kappa = 1
	half := G.NewConstant(0.5)
	one := G.NewConstant(1.0)
	zero := G.NewConstant(0.0)

	absU := G.Must(G.Abs(u))
	squared := G.Must(G.Mul(G.Must(G.Square(u)), half))
	linear := G.Must(G.Sub(absU, half))
	smallU := G.Must(G.Lt(absU, one, true))
	huber := G.Must(G.Add(
		G.Must(G.HadamardProd(smallU, squared)),
		G.Must(G.HadamardProd(G.Must(G.Sub(one, smallU)), linear)),
	))

	// Weight each pairwise loss by |tau_i - 1{u < 0}| for the
	// predicted quantile's fraction tau_i at the quantile midpoint.
	// The fractions live in the graph so they can be broadcast against
	// the pairwise differences.
	tauData := make([]float64, numQuantiles)
	for i := range tauData {
		tauData[i] = (float64(i) + 0.5) / float64(numQuantiles)
	}
	taus := G.NewTensor(g, tensor.Float64, 3,
		G.WithShape(1, numQuantiles, 1), G.WithName("taus"),
		G.WithValue(tensor.New(tensor.WithShape(1, numQuantiles, 1),
			tensor.WithBacking(tauData))))

	indicator := G.Must(G.Lt(u, zero, true))
	tauWeight := G.Must(G.Abs(
		G.Must(G.BroadcastSub(taus, indicator, []byte{0, 2}, nil)),
	))

	loss := G.Must(G.HadamardProd(tauWeight, huber))
	loss = G.Must(G.BroadcastHadamardProd(isWeights, loss, []byte{1, 2}, nil))
	cost := G.Must(G.Mean(loss))

	if _, err := G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, nil, nil, err
	}
	return selectedActions, targetQuantiles, isWeights, nil
}

// SelectGreedy returns the action whose mean quantile value is largest
// for the given observation
func (q *QRDQN) SelectGreedy(obs mat.Vector) (int, error) {
	if obs.Len() != q.features {
		return 0, fmt.Errorf("selectgreedy: invalid observation length "+
			"\n\twant(%v)\n\thave(%v)", q.features, obs.Len())
	}

	input := make([]float64, q.features)
	for i := range input {
		input[i] = obs.AtVec(i)
	}
	if err := q.policyNet.SetInput(input); err != nil {
		return 0, fmt.Errorf("selectgreedy: %v", err)
	}

	if err := q.policyVM.RunAll(); err != nil {
		return 0, fmt.Errorf("selectgreedy: could not run forward pass: %v",
			err)
	}
	defer q.policyVM.Reset()

	quantiles := q.policyNet.Output().Data().([]float64)
	return floatutils.ArgMax(q.meanValues(quantiles, 0)), nil
}

// meanValues returns the mean quantile value of each action for sample
// b of a flattened (batch, actions*quantiles) output
func (q *QRDQN) meanValues(output []float64, b int) []float64 {
	row := output[b*q.numActions*q.numQuantiles:]
	values := make([]float64, q.numActions)
	for a := 0; a < q.numActions; a++ {
		values[a] = floatutils.Mean(row[a*q.numQuantiles : (a+1)*q.numQuantiles])
	}
	return values
}

// Learn performs one gradient step on a batch of transitions, returning
// the absolute TD error of each sample for priority updates
func (q *QRDQN) Learn(batch *expreplay.Batch) ([]float64, error) {
	if len(batch.Actions) != q.batchSize {
		return nil, fmt.Errorf("learn: invalid batch size \n\twant(%v)"+
			"\n\thave(%v)", q.batchSize, len(batch.Actions))
	}

	targets, err := q.computeTargets(batch)
	if err != nil {
		return nil, err
	}

	// One-hot masks spanning each selected action's quantile columns
	maskData := make([]float64, q.batchSize*q.numActions*q.numQuantiles)
	for b, action := range batch.Actions {
		offset := b*q.numActions*q.numQuantiles + action*q.numQuantiles
		for j := 0; j < q.numQuantiles; j++ {
			maskData[offset+j] = 1.0
		}
	}

	err = G.Let(q.selectedActions, tensor.New(
		tensor.WithShape(q.batchSize, q.numActions*q.numQuantiles),
		tensor.WithBacking(maskData)))
	if err != nil {
		return nil, fmt.Errorf("learn: could not set action mask: %v", err)
	}

	err = G.Let(q.targetQuantiles, tensor.New(
		tensor.WithShape(q.batchSize, q.numQuantiles),
		tensor.WithBacking(targets)))
	if err != nil {
		return nil, fmt.Errorf("learn: could not set targets: %v", err)
	}

	weights := make([]float64, q.batchSize)
	copy(weights, batch.Weights)
	err = G.Let(q.isWeights, tensor.New(
		tensor.WithShape(q.batchSize, 1, 1), tensor.WithBacking(weights)))
	if err != nil {
		return nil, fmt.Errorf("learn: could not set weights: %v", err)
	}

	if err := q.trainNet.SetInput(batch.States); err != nil {
		return nil, fmt.Errorf("learn: %v", err)
	}
	if err := q.trainVM.RunAll(); err != nil {
		return nil, fmt.Errorf("learn: could not run training pass: %v", err)
	}

	// TD error of each sample as the gap between mean target and mean
	// predicted quantile value of the selected action
	tdErrs := make([]float64, q.batchSize)
	output := q.trainNet.Output().Data().([]float64)
	for b, action := range batch.Actions {
		start := b*q.numActions*q.numQuantiles + action*q.numQuantiles
		predicted := floatutils.Mean(output[start : start+q.numQuantiles])
		target := floatutils.Mean(targets[b*q.numQuantiles : (b+1)*q.numQuantiles])
		tdErrs[b] = math.Abs(target - predicted)
	}

	if err := q.solver.Step(q.trainNet.Model()); err != nil {
		return nil, fmt.Errorf("learn: could not apply gradients: %v", err)
	}
	q.trainVM.Reset()

	// Keep the acting network on the learned weights
	if err := q.policyNet.Set(q.trainNet); err != nil {
		return nil, fmt.Errorf("learn: could not update policy network: %v",
			err)
	}
	return tdErrs, nil
}

// computeTargets runs the target network on the batch's next states
// and returns the flattened (batch, quantiles) bootstrap targets
//
//	r + gamma^n * z_j(s', argmax_a mean_j z_j(s', a))
//
// with the bootstrap term zeroed on terminal transitions.
func (q *QRDQN) computeTargets(batch *expreplay.Batch) ([]float64, error) {
	if err := q.targetNet.SetInput(batch.NextStates); err != nil {
		return nil, fmt.Errorf("learn: %v", err)
	}
	if err := q.targetVM.RunAll(); err != nil {
		return nil, fmt.Errorf("learn: could not run target pass: %v", err)
	}
	defer q.targetVM.Reset()

	output := q.targetNet.Output().Data().([]float64)
	targets := make([]float64, q.batchSize*q.numQuantiles)
	for b := 0; b < q.batchSize; b++ {
		greedy := floatutils.ArgMax(q.meanValues(output, b))
		start := b*q.numActions*q.numQuantiles + greedy*q.numQuantiles

		discount := q.gammaN * (1.0 - batch.Dones[b])
		for j := 0; j < q.numQuantiles; j++ {
			targets[b*q.numQuantiles+j] = batch.Rewards[b] +
				discount*output[start+j]
		}
	}
	return targets, nil
}

// SyncTarget copies the training network's weights into the target
// network
func (q *QRDQN) SyncTarget() error {
	return q.targetNet.Set(q.trainNet)
}

// ResampleNoise redraws the networks' stochastic exploration
// parameters, if any
func (q *QRDQN) ResampleNoise() {
	q.policyNet.ResampleNoise()
}

// Save persists the online and target network weights under dir
func (q *QRDQN) Save(dir string) error {
	err := checkpointer.Save(filepath.Join(dir, onlineNetFile), q.trainNet)
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}

	err = checkpointer.Save(filepath.Join(dir, targetNetFile), q.targetNet)
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load restores the online and target network weights from dir
func (q *QRDQN) Load(dir string) error {
	err := checkpointer.Load(filepath.Join(dir, onlineNetFile), q.trainNet)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	if err := q.policyNet.Set(q.trainNet); err != nil {
		return fmt.Errorf("load: %v", err)
	}

	err = checkpointer.Load(filepath.Join(dir, targetNetFile), q.targetNet)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	return nil
}

// Close releases the learner's virtual machines
func (q *QRDQN) Close() error {
	for _, vm := range []G.VM{q.policyVM, q.trainVM, q.targetVM} {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}
