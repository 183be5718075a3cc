package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultSymbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ "

// TrainConfig holds every option of the train command. It can be loaded
// from a YAML file; flags given on the command line win over the file.
type TrainConfig struct {
	Targets    []string `yaml:"targets" json:"targets"`
	TrainLen   int      `yaml:"train_len" json:"train_len"`
	Target     string   `yaml:"target" json:"target"`
	BatchSize  int      `yaml:"batch_size" json:"batch_size"`
	MinLen     int      `yaml:"min_len" json:"min_len"`
	MaxLen     int      `yaml:"max_len" json:"max_len"`
	Dev        float64  `yaml:"dev" json:"dev"`
	Symbols    string   `yaml:"vocab" json:"vocab"`
	Autoencode bool     `yaml:"autoencode" json:"autoencode"`

	Bidi                 bool    `yaml:"bidi" json:"bidi"`
	Layers               int     `yaml:"layers" json:"layers"`
	Cell                 string  `yaml:"cell" json:"cell"`
	EmbDim               int     `yaml:"emb_dim" json:"emb_dim"`
	HidDim               int     `yaml:"hid_dim" json:"hid_dim"`
	AttDim               int     `yaml:"att_dim" json:"att_dim"`
	AttType              string  `yaml:"att_type" json:"att_type"`
	Dropout              float64 `yaml:"dropout" json:"dropout"`
	ProjectInit          bool    `yaml:"project_init" json:"project_init"`
	Maxout               int     `yaml:"maxout" json:"maxout"`
	TieWeights           bool    `yaml:"tie_weights" json:"tie_weights"`
	ProjectOnTiedWeights bool    `yaml:"project_on_tied_weights" json:"project_on_tied_weights"`

	Epochs            int     `yaml:"epochs" json:"epochs"`
	Checkpoint        int     `yaml:"checkpoint" json:"checkpoint"`
	HooksPerEpoch     int     `yaml:"hooks_per_epoch" json:"hooks_per_epoch"`
	Optim             string  `yaml:"optim" json:"optim"`
	LearningRate      float64 `yaml:"learning_rate" json:"learning_rate"`
	LearningRateDecay float64 `yaml:"learning_rate_decay" json:"learning_rate_decay"`
	StartDecayAt      int     `yaml:"start_decay_at" json:"start_decay_at"`
	MaxGradNorm       float64 `yaml:"max_grad_norm" json:"max_grad_norm"`
	GPU               bool    `yaml:"gpu" json:"gpu"`
	Beam              bool    `yaml:"beam" json:"beam"`

	Seed   int64  `yaml:"seed" json:"seed"`
	Out    string `yaml:"out" json:"out"`
	Visdom string `yaml:"visdom" json:"visdom"`
	Env    string `yaml:"env" json:"env"`
}

// listFlag accepts comma or space separated values and may be repeated.
type listFlag struct {
	vals *[]string
}

func (l listFlag) String() string {
	if l.vals == nil {
		return ""
	}
	return strings.Join(*l.vals, ",")
}

func (l listFlag) Set(s string) error {
	for _, v := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		*l.vals = append(*l.vals, v)
	}
	return nil
}

func (c *TrainConfig) register(fs *flag.FlagSet) {
	fs.Var(listFlag{&c.Targets}, "targets", "Transformations to learn, comma or space separated (required)")
	fs.IntVar(&c.TrainLen, "train_len", 100000, "Number of generated pairs per target")
	fs.StringVar(&c.Target, "target", "redrum", "String translated by the checkpoint hook")
	fs.IntVar(&c.BatchSize, "batch_size", 64, "Batch size")
	fs.IntVar(&c.MinLen, "min_len", 1, "Minimum source length")
	fs.IntVar(&c.MaxLen, "max_len", 15, "Maximum source length")
	fs.Float64Var(&c.Dev, "dev", 0.1, "Fraction of each target held out for validation")
	fs.StringVar(&c.Symbols, "vocab", defaultSymbols, "Characters sampled into source strings")
	fs.BoolVar(&c.Autoencode, "autoencode", false, "Train the encoder by autoencoding the targets")

	fs.BoolVar(&c.Bidi, "bidi", false, "Bidirectional encoder")
	fs.IntVar(&c.Layers, "layers", 1, "Recurrent layers in encoder and decoder")
	fs.StringVar(&c.Cell, "cell", "LSTM", "Recurrent cell (LSTM, GRU, RNN)")
	fs.IntVar(&c.EmbDim, "emb_dim", 4, "Embedding dimension")
	fs.IntVar(&c.HidDim, "hid_dim", 64, "Hidden size")
	fs.IntVar(&c.AttDim, "att_dim", 64, "Attention dimension")
	fs.StringVar(&c.AttType, "att_type", "Bahdanau", "Attention (Bahdanau, General, Dot)")
	fs.Float64Var(&c.Dropout, "dropout", 0.0, "Dropout probability")
	fs.BoolVar(&c.ProjectInit, "project_init", false, "Project the encoder state into the decoder's initial state")
	fs.IntVar(&c.Maxout, "maxout", 0, "Maxout pieces in the output layer (0 disables)")
	fs.BoolVar(&c.TieWeights, "tie_weights", false, "Share embedding and output projection weights")
	fs.BoolVar(&c.ProjectOnTiedWeights, "project_on_tied_weights", false, "Always project onto the tied embedding space")

	fs.IntVar(&c.Epochs, "epochs", 5, "Epochs per phase")
	fs.IntVar(&c.Checkpoint, "checkpoint", 100, "Batches between checkpoints")
	fs.IntVar(&c.HooksPerEpoch, "hooks_per_epoch", 5, "Hook firings per epoch")
	fs.StringVar(&c.Optim, "optim", "Adam", "Optimizer (Adam, SGD, RMSprop, Adagrad, Momentum)")
	fs.Float64Var(&c.LearningRate, "learning_rate", 0.01, "Learning rate")
	fs.Float64Var(&c.LearningRateDecay, "learning_rate_decay", 0.5, "Learning rate decay factor")
	fs.IntVar(&c.StartDecayAt, "start_decay_at", 8, "Epoch from which the learning rate decays")
	fs.Float64Var(&c.MaxGradNorm, "max_grad_norm", 5.0, "Global gradient norm clip")
	fs.BoolVar(&c.GPU, "gpu", false, "Run on a CUDA device if available")
	fs.BoolVar(&c.Beam, "beam", false, "Use beam search in the hook")

	fs.Int64Var(&c.Seed, "seed", 1001, "Random seed")
	fs.StringVar(&c.Out, "out", "", "Output directory for vocab, metrics and checkpoints")
	fs.StringVar(&c.Visdom, "visdom", "", "Visdom server URL (disabled when empty)")
	fs.StringVar(&c.Env, "env", "multitarget", "Visdom environment")
}

// ParseTrainConfig parses args. When --config names a YAML file, its values
// replace the defaults and any flag set explicitly is applied on top.
func ParseTrainConfig(args []string) (TrainConfig, error) {
	var cfg TrainConfig
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	cfg.register(fs)
	configPath := fs.String("config", "", "YAML file with default options")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *configPath != "" {
		explicit := make(map[string]string)
		fs.Visit(func(f *flag.Flag) {
			if f.Name != "config" {
				explicit[f.Name] = f.Value.String()
			}
		})
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", *configPath, err)
		}
		if _, ok := explicit["targets"]; ok {
			cfg.Targets = nil
		}
		for name, val := range explicit {
			if err := fs.Set(name, val); err != nil {
				return cfg, fmt.Errorf("reapplying --%s: %w", name, err)
			}
		}
	}
	return cfg, cfg.Validate()
}

// Validate rejects options that would fail later in the run.
func (c TrainConfig) Validate() error {
	switch {
	case len(c.Targets) == 0:
		return fmt.Errorf("--targets is required (one of %s)", strings.Join(TransformNames(), ", "))
	case c.TrainLen < 1:
		return fmt.Errorf("--train_len must be positive")
	case c.BatchSize < 1:
		return fmt.Errorf("--batch_size must be positive")
	case c.MinLen < 1 || c.MaxLen < c.MinLen:
		return fmt.Errorf("need 1 <= --min_len <= --max_len, got %d and %d", c.MinLen, c.MaxLen)
	case c.Dev <= 0 || c.Dev >= 1:
		return fmt.Errorf("--dev must be in (0, 1), got %g", c.Dev)
	case len(Symbolize(c.Symbols)) == 0:
		return fmt.Errorf("--vocab is empty")
	case c.Epochs < 1:
		return fmt.Errorf("--epochs must be positive")
	}
	if _, err := LookupTransforms(c.Targets); err != nil {
		return err
	}
	return nil
}

func (c TrainConfig) ModelConfig() ModelConfig {
	return ModelConfig{
		AttType:              c.AttType,
		Dropout:              c.Dropout,
		Bidi:                 c.Bidi,
		Cell:                 c.Cell,
		ProjectInit:          c.ProjectInit,
		Maxout:               c.Maxout,
		TieWeights:           c.TieWeights,
		ProjectOnTiedWeights: c.ProjectOnTiedWeights,
	}
}

// Alphabet returns the distinct symbols of --vocab in order.
func (c TrainConfig) Alphabet() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range Symbolize(c.Symbols) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
