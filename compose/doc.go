// Package compose builds merged graph functions from YAML pipeline
// manifests.
//
// A pipeline lists stages in order; each stage names an archive in a
// store.Store and the scope its nodes are imported under. Pipelines may
// include other pipelines, whose stages run first:
//
//	name: classifier
//	includes: [featurizer]
//	stages:
//	  - scope: encoder
//	    archive: models/encoder
//	  - scope: head
//	    archive: models/head.gfn
//
// Composer.Build opens every archive concurrently and merges them with
// gfn.Merge.
package compose
