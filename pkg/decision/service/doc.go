// Package service runs decision table evaluations end to end.
//
// A Service ties the table registry, the batch evaluator and the ambient
// stack together: every call leases the table, evaluates the batch inside an
// "engine.evaluate" span, records metrics and hands the results to the
// evidence recorder. Transports (HTTP, Lambda, CLI) only decode requests and
// encode responses.
//
// # Usage
//
//	svc := service.New(registry, evaluator,
//	    service.WithRecorder(rec),
//	    service.WithMetrics(collector),
//	    service.WithTracer(tracer),
//	    service.WithLogger(logger),
//	)
//
//	resp, err := svc.Evaluate(ctx, service.Request{
//	    Table:   "discounts",
//	    Records: []engine.Record{{"customer": "gold", "amount": 120}},
//	    Source:  service.SourceHTTP,
//	})
//
// Inline schemas are compiled per call with EvaluateInline. They are not
// added to the registry.
package service
