// Package httpsteps provides ready-made pipeline steps for HTTP requests and
// response handling.
//
// Steps communicate through well-known context keys: Get and Fetch store the
// response body under KeyBody (Fetch reads its URL from KeyURL), DecodeJSON
// replaces the body with the decoded value, and Expect verifies it.
//
// Example pipeline: Get url → DecodeJSON → Expect(predicate)
//
//	defs := pipeline.DefinitionsFunc(func(string) []pipeline.StageDef {
//	    return []pipeline.StageDef{
//	        {ID: "get", Order: 1, Step: httpsteps.Get(nil, "https://api.example.com/status")},
//	        {ID: "decode", Order: 2, Step: httpsteps.DecodeJSON()},
//	        {ID: "check", Order: 3, Step: httpsteps.Expect(func(v any) error {
//	            m, _ := v.(map[string]any)
//	            if m["status"] != "ok" { return fmt.Errorf("unexpected status") }
//	            return nil
//	        })},
//	    }
//	})
package httpsteps
