// Package gfn implements graph functions: portable, serializable units of
// computation graph with ordered input and output endpoints.
//
// A GraphFunction is captured from a session, persisted as a small
// msgpack archive, rebuilt from a trained model through a model adapter,
// or merged from a linear chain of other graph functions:
//
//	enc, err := gfn.Load("encoder")          // reads encoder.gfn
//	head, err := gfn.Load("head.gfn")
//	fn, err := gfn.Merge(ctx, []gfn.Stage{
//	    {Scope: "encoder", Function: enc},
//	    {Scope: "head", Function: head},
//	})
//
// Merging runs every import in fresh, private sessions; the caller's
// sessions and linked registries are never touched.
package gfn
