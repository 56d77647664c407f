// Package agents composes the customer-service agent tree: a root
// customer_service agent with two direct lookup tools and two specialist
// sub-agents, each backed by its own tool server.
package agents

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	core "github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/core"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/supervisor"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/memory"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/tools"
)

// Agent and tool names as the model sees them.
const (
	CustomerServiceName = "customer_service"
	InventoryAgentName  = "inventory_agent"
	ShippingAgentName   = "shipping_agent"

	StoreHoursTool   = "get_store_hours"
	ReturnPolicyTool = "get_return_policy"
)

const customerServiceInstruction = `You are a helpful customer service representative.

You can help customers with:
1. Store hours and contact information (use get_store_hours)
2. Return policy questions (use get_return_policy)
3. Product inventory and stock (use inventory_agent)
4. Shipment tracking (use shipping_agent)

When a customer asks:
- About store hours or contact → use get_store_hours
- About returns or refunds → use get_return_policy
- About product availability or stock → use inventory_agent
- About shipment status or tracking → use shipping_agent

Always be friendly, professional, and helpful.`

const inventoryInstruction = `You are an inventory specialist.

Your job is to check product stock levels and inventory status.

When asked about product availability:
1. Use check_stock tool to get current stock
2. Provide clear stock status
3. Mention if product is in stock or out of stock

When asked about low stock:
1. Use get_low_stock_products tool
2. List products that need restocking

Always be concise and factual.`

const shippingInstruction = `You are a shipping specialist.

Your job is to track shipments and provide delivery status.

When asked about a specific shipment:
1. Use track_shipment tool with the tracking number
2. Provide status and current location
3. Be clear about delivery status

When asked about active shipments:
1. Use get_active_shipments tool
2. List all non-delivered shipments

Always be helpful and provide accurate tracking information.`

// StoreHours is the get_store_hours result.
type StoreHours struct {
	OnlineStore     string `json:"online_store"`
	CustomerService string `json:"customer_service"`
	Phone           string `json:"phone"`
}

// ReturnPolicy is the get_return_policy result.
type ReturnPolicy struct {
	ReturnWindow  string `json:"return_window"`
	Condition     string `json:"condition"`
	RefundMethod  string `json:"refund_method"`
	RestockingFee string `json:"restocking_fee"`
}

// GetStoreHours returns the store's operating hours and contact number.
func GetStoreHours() StoreHours {
	return StoreHours{
		OnlineStore:     "24/7",
		CustomerService: "9 AM - 6 PM EST, Monday-Friday",
		Phone:           "1-800-EXAMPLE",
	}
}

// GetReturnPolicy returns the return policy.
func GetReturnPolicy() ReturnPolicy {
	return ReturnPolicy{
		ReturnWindow:  "30 days",
		Condition:     "Unopened and unused",
		RefundMethod:  "Original payment method",
		RestockingFee: "None for defective items, 15% for other returns",
	}
}

// Options wires the agent tree to its model, tool servers and screens.
type Options struct {
	Model llm.Client
	// InventoryTools and ShippingTools are usually mcp.Toolset registries.
	InventoryTools tools.Registry
	ShippingTools  tools.Registry
	// Memory holds customer_service history; sub-agents are stateless.
	Memory memory.ConversationStore
	// Processors trim customer_service history before it is replayed.
	Processors    []core.Processor
	Plugins       []core.Plugin
	Middleware    []core.Middleware
	MaxIterations int
	Timeout       string
	Logger        *zerolog.Logger
}

// Team is the built agent tree. Root is the entry point.
type Team struct {
	Root      *core.ChatAgent
	Inventory *core.ChatAgent
	Shipping  *core.ChatAgent
}

// Build composes the three agents. Every agent gets the same plugins, so a
// screen wraps each model call in the tree.
func Build(opts Options) (*Team, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("agents: model is required")
	}
	if opts.InventoryTools == nil || opts.ShippingTools == nil {
		return nil, fmt.Errorf("agents: inventory and shipping tools are required")
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 6
	}

	newAgent := func(name, desc, instruction string, reg tools.Registry, mem memory.ConversationStore) *core.ChatAgent {
		return core.NewChatAgent(core.ChatConfig{
			Model:      opts.Model,
			Tools:      reg,
			Mem:        mem,
			Plugins:    opts.Plugins,
			Middleware: opts.Middleware,
			Logger:     &logger,
			Config: core.AgentConfig{
				Name:          name,
				Description:   desc,
				MaxIterations: maxIter,
				Timeout:       opts.Timeout,
				SystemPrompt:  instruction,
			},
		})
	}

	inventory := newAgent(InventoryAgentName,
		"Inventory specialist: checks product stock levels and lists products that need restocking.",
		inventoryInstruction, opts.InventoryTools, nil)
	shipping := newAgent(ShippingAgentName,
		"Shipping specialist: tracks shipments by tracking number and lists active shipments.",
		shippingInstruction, opts.ShippingTools, nil)

	reg := tools.NewRegistry()
	for _, t := range []tools.Tool{
		tools.NewStaticTool(StoreHoursTool, "Get store operating hours and contact information.", func() any { return GetStoreHours() }),
		tools.NewStaticTool(ReturnPolicyTool, "Get return policy information.", func() any { return GetReturnPolicy() }),
		supervisor.NewAgentTool(InventoryAgentName, inventory.Config.Description, inventory),
		supervisor.NewAgentTool(ShippingAgentName, shipping.Config.Description, shipping),
	} {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("agents: %w", err)
		}
	}

	root := newAgent(CustomerServiceName,
		"Customer service representative for store hours, returns, stock and shipments.",
		customerServiceInstruction, reg, opts.Memory)
	root.Processors = opts.Processors

	logger.Debug().Strs("tools", reg.List()).Int("plugins", len(opts.Plugins)).Msg("agent tree built")
	return &Team{Root: root, Inventory: inventory, Shipping: shipping}, nil
}

// DemoQuery is one scripted request from the demo run.
type DemoQuery struct {
	Query       string
	Description string
}

// DemoQueries exercise each tool path once.
var DemoQueries = []DemoQuery{
	{"What are your store hours?", "Direct tool: get_store_hours"},
	{"What is your return policy?", "Direct tool: get_return_policy"},
	{"Is PROD-001 in stock?", "Agent tool: inventory_agent -> check_stock"},
	{"Show me products with low stock", "Agent tool: inventory_agent -> get_low_stock_products"},
	{"Track shipment SHIP-002", "Agent tool: shipping_agent -> track_shipment"},
	{"Show me all active shipments", "Agent tool: shipping_agent -> get_active_shipments"},
}
