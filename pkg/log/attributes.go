// Package log defines standard attribute keys for SVM training operations.
//
// Using these keys keeps solver, orchestrator and estimator logs consistent
// so that a single training run can be followed across components. Keys use
// a hierarchical "area.name" convention.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type ("SVC", "NuSVR", ...).
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed
	// ("fit", "predict", "cross_validate").
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// SVMTypeKey is the SVM formulation ("c_svc", "nu_svc", "one_class",
	// "epsilon_svr", "nu_svr").
	SVMTypeKey = "svm.type"

	// KernelKey names the kernel function.
	KernelKey = "svm.kernel"

	// PairKey identifies a one-vs-one class pair ("<i>-<j>").
	PairKey = "svm.pair"

	// FoldKey is the cross-validation fold index.
	FoldKey = "svm.fold"
)

// Data shape.
const (
	// SamplesKey is the number of training examples in the (sub-)problem.
	SamplesKey = "data.samples"

	// FeaturesKey is the feature dimensionality.
	FeaturesKey = "data.features"

	// ClassesKey is the number of distinct class labels.
	ClassesKey = "data.classes"
)

// Solver diagnostics.
const (
	// IterationKey is the SMO iteration count.
	IterationKey = "solver.iterations"

	// ObjectiveKey is the final dual objective value.
	ObjectiveKey = "solver.obj"

	// RhoKey is the decision-function bias.
	RhoKey = "solver.rho"

	// StatusKey is the solver termination status.
	StatusKey = "solver.status"

	// ActiveSizeKey is the active-set size after shrinking.
	ActiveSizeKey = "solver.active_size"

	// NSVKey is the number of support vectors.
	NSVKey = "svm.n_sv"

	// NBSVKey is the number of bounded support vectors.
	NBSVKey = "svm.n_bsv"

	// CacheBudgetKey is the kernel cache budget in elements.
	CacheBudgetKey = "cache.budget"

	// CacheUsedKey is the number of cached kernel elements.
	CacheUsedKey = "cache.used"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Cross validation results.
const (
	AccuracyKey           = "cv.accuracy"
	MSEKey                = "cv.mse"
	SquaredCorrelationKey = "cv.squared_correlation"
)

// Error context.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit           = "fit"
	OperationPredict       = "predict"
	OperationCrossValidate = "cross_validate"

	ErrorConvergence = "CONVERGENCE_FAILURE"
	ErrorSingleClass = "SINGLE_CLASS"
)
