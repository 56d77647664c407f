// Package customerservice is a guarded multi-agent customer-service
// assistant.
//
// A customer_service agent (package agents) answers store-hours and
// return-policy questions itself and delegates stock and shipment questions
// to inventory_agent and shipping_agent. Those sub-agents reach their data
// through MCP tool servers (package services) run as child processes over
// stdio (package mcp). Every model call in the tree can be wrapped by a
// content screen (package screen): a cloud classifier, an LLM judge, or a
// no-op.
//
// The runnable entry point is cmd/csagent.
package customerservice
