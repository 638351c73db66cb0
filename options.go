package sequencer

import "github.com/nnsW3/signup-sequencer/field"

const (
	// DefaultDepth matches the Semaphore.sol deployment.
	DefaultDepth = 21

	// MaxDepth keeps the capacity addressable by an int.
	MaxDepth = 32
)

// DefaultInitialLeaf is the empty leaf of Semaphore.sol.
var DefaultInitialLeaf = field.MustFromHex("1c4823575d154474ee3e5ac838d002456a815181437afd14f126da58a9912bbe")

type treeConfig struct {
	depth       int
	initialLeaf field.Element
	hasher      Hasher
}

func defaultTreeConfig() *treeConfig {
	return &treeConfig{
		depth:       DefaultDepth,
		initialLeaf: DefaultInitialLeaf,
		hasher:      PoseidonHasher{},
	}
}

// Option is a function that configures a tree.
type Option func(*treeConfig)

func TreeDepth(depth int) Option {
	return func(conf *treeConfig) {
		conf.depth = depth
	}
}

func InitialLeaf(leaf field.Element) Option {
	return func(conf *treeConfig) {
		conf.initialLeaf = leaf
	}
}

func UseHasher(hasher Hasher) Option {
	return func(conf *treeConfig) {
		if hasher != nil {
			conf.hasher = hasher
		}
	}
}

func newTree(opts ...Option) *MerkleTree {
	conf := defaultTreeConfig()
	for _, opt := range opts {
		opt(conf)
	}
	return NewMerkleTree(conf.depth, conf.initialLeaf, conf.hasher)
}
