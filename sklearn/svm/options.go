package svm

import (
	"github.com/YuminosukeSato/gosvm/pkg/errors"
	gosvm "github.com/YuminosukeSato/gosvm/svm"
	"github.com/YuminosukeSato/gosvm/svm/kernel"
)

// Gamma modes understood by WithGammaMode.
const (
	GammaScale = "scale" // 1 / (n_features * X.var())
	GammaAuto  = "auto"  // 1 / n_features
)

// config はハイパーパラメータ。各推定器は使うものだけ読む。
type config struct {
	c           float64
	nu          float64
	epsilon     float64
	kernel      string
	custom      kernel.Kernel
	gamma       float64
	gammaMode   string
	degree      int
	coef0       float64
	tol         float64
	cacheSizeMB float64
	shrinking   bool
	probability bool
	classWeight map[int]float64
	randomState int64
	maxIter     int
	parallel    bool
}

func defaultConfig() config {
	return config{
		c:           1.0,
		nu:          0.5,
		epsilon:     0.1,
		kernel:      "rbf",
		gammaMode:   GammaScale,
		degree:      3,
		coef0:       0,
		tol:         1e-3,
		cacheSizeMB: 200,
		shrinking:   true,
	}
}

// Option is a functional option shared by all SVM estimators.
type Option func(*config)

// WithC sets the regularization parameter (SVC, SVR, NuSVR).
func WithC(c float64) Option {
	return func(cfg *config) { cfg.c = c }
}

// WithNu sets nu (NuSVC, OneClassSVM, NuSVR).
func WithNu(nu float64) Option {
	return func(cfg *config) { cfg.nu = nu }
}

// WithEpsilon sets the width of the epsilon-insensitive tube (SVR).
func WithEpsilon(epsilon float64) Option {
	return func(cfg *config) { cfg.epsilon = epsilon }
}

// WithKernel selects "linear", "poly", "rbf" or "sigmoid".
func WithKernel(name string) Option {
	return func(cfg *config) {
		cfg.kernel = name
		cfg.custom = nil
	}
}

// WithCustomKernel installs an arbitrary kernel. Gamma, degree and coef0
// are then ignored.
func WithCustomKernel(k kernel.Kernel) Option {
	return func(cfg *config) { cfg.custom = k }
}

// WithGamma sets a fixed kernel coefficient.
func WithGamma(gamma float64) Option {
	return func(cfg *config) {
		cfg.gamma = gamma
		cfg.gammaMode = ""
	}
}

// WithGammaMode derives gamma from the training data: GammaScale or
// GammaAuto.
func WithGammaMode(mode string) Option {
	return func(cfg *config) { cfg.gammaMode = mode }
}

// WithDegree sets the degree of the polynomial kernel.
func WithDegree(degree int) Option {
	return func(cfg *config) { cfg.degree = degree }
}

// WithCoef0 sets the independent term of the poly and sigmoid kernels.
func WithCoef0(coef0 float64) Option {
	return func(cfg *config) { cfg.coef0 = coef0 }
}

// WithTol sets the stopping tolerance.
func WithTol(tol float64) Option {
	return func(cfg *config) { cfg.tol = tol }
}

// WithCacheSize sets the kernel cache size in megabytes.
func WithCacheSize(mb float64) Option {
	return func(cfg *config) { cfg.cacheSizeMB = mb }
}

// WithShrinking toggles the shrinking heuristic.
func WithShrinking(shrinking bool) Option {
	return func(cfg *config) { cfg.shrinking = shrinking }
}

// WithProbability enables probability estimates, at the cost of five extra
// trainings per binary problem.
func WithProbability(probability bool) Option {
	return func(cfg *config) { cfg.probability = probability }
}

// WithClassWeight multiplies C per class label.
func WithClassWeight(weights map[int]float64) Option {
	return func(cfg *config) {
		cfg.classWeight = make(map[int]float64, len(weights))
		for k, v := range weights {
			cfg.classWeight[k] = v
		}
	}
}

// WithRandomState seeds the shuffles of probability estimation and cross
// validation.
func WithRandomState(seed int64) Option {
	return func(cfg *config) { cfg.randomState = seed }
}

// WithMaxIter caps solver iterations; 0 or less means no explicit cap.
func WithMaxIter(maxIter int) Option {
	return func(cfg *config) { cfg.maxIter = maxIter }
}

// WithParallel trains one-vs-one pairs and folds concurrently.
func WithParallel(parallel bool) Option {
	return func(cfg *config) { cfg.parallel = parallel }
}

// buildKernel は gamma を解決してカーネルを組み立てる。
func (cfg *config) buildKernel(gamma float64) (kernel.Kernel, error) {
	if cfg.custom != nil {
		return cfg.custom, nil
	}
	switch cfg.kernel {
	case "linear":
		return kernel.Linear{}, nil
	case "poly":
		return kernel.Polynomial{Gamma: gamma, Coef0: cfg.coef0, Degree: cfg.degree}, nil
	case "rbf":
		return kernel.RBF{Gamma: gamma}, nil
	case "sigmoid":
		return kernel.Sigmoid{Gamma: gamma, Coef0: cfg.coef0}, nil
	default:
		return nil, errors.NewValidationError("kernel", "must be one of linear, poly, rbf, sigmoid", cfg.kernel)
	}
}

func (cfg *config) parameter(typ gosvm.Type, k kernel.Kernel) gosvm.Parameter {
	maxIter := cfg.maxIter
	if maxIter < 0 {
		maxIter = 0
	}
	return gosvm.Parameter{
		Type:        typ,
		Kernel:      k,
		C:           cfg.c,
		Nu:          cfg.nu,
		P:           cfg.epsilon,
		Eps:         cfg.tol,
		CacheSize:   int64(cfg.cacheSizeMB * (1 << 20)),
		Shrinking:   cfg.shrinking,
		Probability: cfg.probability,
		Weights:     cfg.classWeight,
		Seed:        cfg.randomState,
		MaxIter:     maxIter,
		Parallel:    cfg.parallel,
	}
}

func (cfg *config) params(typ gosvm.Type) map[string]interface{} {
	p := map[string]interface{}{
		"kernel":       cfg.kernel,
		"degree":       cfg.degree,
		"coef0":        cfg.coef0,
		"tol":          cfg.tol,
		"cache_size":   cfg.cacheSizeMB,
		"shrinking":    cfg.shrinking,
		"max_iter":     cfg.maxIter,
		"random_state": cfg.randomState,
	}
	if cfg.gammaMode != "" {
		p["gamma"] = cfg.gammaMode
	} else {
		p["gamma"] = cfg.gamma
	}
	switch typ {
	case gosvm.CSVC:
		p["C"] = cfg.c
	case gosvm.NuSVC, gosvm.OneClass:
		p["nu"] = cfg.nu
	case gosvm.EpsilonSVR:
		p["C"] = cfg.c
		p["epsilon"] = cfg.epsilon
	case gosvm.NuSVR:
		p["C"] = cfg.c
		p["nu"] = cfg.nu
	}
	if typ.IsClassifier() {
		p["probability"] = cfg.probability
		p["class_weight"] = cfg.classWeight
	}
	return p
}
