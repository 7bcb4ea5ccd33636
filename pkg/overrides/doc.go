// Package overrides loads scenario-level prop overrides from JSON or YAML
// files. Each file may declare overrides for several scenarios:
//
//	scenarios:
//	  orders-page:
//	    nodes:
//	      list:
//	        pageSize: 25
//	      list@*:
//	        dense: true
//
// Keys under nodes are node ids or "<nodeId>@<itemKey>" patterns, see
// package merge for how they are applied.
package overrides
