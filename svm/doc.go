// Package svm trains support vector machines with the SMO solver of
// package solver.
//
// Five formulations are supported: C-SVC and nu-SVC classification
// (multi-class through one-vs-one), one-class distribution estimation, and
// epsilon-SVR and nu-SVR regression. Classifiers can carry Platt-scaled
// probability estimates and regression models a Laplace residual scale.
//
//	prob, err := svm.NewProblem(x, y)
//	param := svm.DefaultParameter()
//	model, err := svm.Train(ctx, prob, &param)
//	label := model.Predict(x[0])
//
// Train and CrossValidation never modify the Problem they are given.
package svm
