package config

import (
	"testing"

	"github.com/dialtone/dialtone/pkg/compose"
)

func declByID(decls []compose.Declaration, kind compose.Kind, name string) (compose.Declaration, bool) {
	for _, d := range decls {
		if d.Kind == kind && d.Name == name {
			return d, true
		}
	}
	return compose.Declaration{}, false
}

func hasRef(refs []compose.Ref, kind compose.Kind, name string) bool {
	for _, r := range refs {
		if r.Kind == kind && r.Name == name {
			return true
		}
	}
	return false
}

func TestToDeclarationsExtractsReferences(t *testing.T) {
	decls := &Declarations{
		Instance: InstanceConfig{Alias: "test"},
		HoursOfOperations: []HoursOfOperationConfig{
			{Name: "Weekdays", TimeZone: "UTC"},
		},
		Queues: []QueueConfig{
			{Name: "Support", HoursOfOperationName: "Weekdays", QuickConnectKeys: []string{"Escalate"}},
		},
		QuickConnects: []QuickConnectConfig{
			{Name: "Escalate", Type: "QUEUE", Target: "Support"},
		},
		RoutingProfiles: []RoutingProfileConfig{
			{
				Name:                     "Basic",
				DefaultOutboundQueueName: "Support",
				QueueConfigs:             []RoutingQueueConfig{{QueueName: "Support", Channel: "VOICE", Priority: 1}},
			},
		},
		SecurityProfiles: []SecurityProfileConfig{{Name: "Agent"}},
		Users: []UserConfig{
			{Username: "agent1", Email: "a@example.com", RoutingProfileName: "Basic", SecurityProfileNames: []string{"Agent"}},
		},
	}

	out, err := ToDeclarations(decls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	queue, ok := declByID(out, compose.KindQueue, "Support")
	if !ok {
		t.Fatal("queue declaration missing")
	}
	if !hasRef(queue.Refs, compose.KindHoursOfOperation, "Weekdays") {
		t.Error("queue should reference its hours definition")
	}
	if !hasRef(queue.Refs, compose.KindQuickConnect, "Escalate") {
		t.Error("queue should reference its quick connect")
	}

	profile, _ := declByID(out, compose.KindRoutingProfile, "Basic")
	if !hasRef(profile.Refs, compose.KindQueue, "Support") {
		t.Error("routing profile should reference its queues")
	}

	user, _ := declByID(out, compose.KindUser, "agent1")
	if !hasRef(user.Refs, compose.KindRoutingProfile, "Basic") {
		t.Error("user should reference its routing profile")
	}
	if !hasRef(user.Refs, compose.KindSecurityProfile, "Agent") {
		t.Error("user should reference its security profiles")
	}
}

func TestToDeclarationsLambdaLayerRefs(t *testing.T) {
	decls := &Declarations{
		Instance:     InstanceConfig{Alias: "test"},
		LambdaLayers: []LambdaLayerConfig{{Name: "deps", Filename: "deps.zip"}},
		LambdaFunctions: []LambdaFunctionConfig{
			{Name: "fulfillment", Handler: "index.handler", Runtime: "python3.12", LayerNames: []string{"deps"}},
		},
	}

	out, err := ToDeclarations(decls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fn, ok := declByID(out, compose.KindLambdaFunction, "fulfillment")
	if !ok {
		t.Fatal("function declaration missing")
	}
	if !hasRef(fn.Refs, compose.KindLambdaLayer, "deps") {
		t.Error("function should reference its layer")
	}
}

func botDecls(logsOn bool) *Declarations {
	return &Declarations{
		Instance: InstanceConfig{Alias: "test-center"},
		LambdaFunctions: []LambdaFunctionConfig{
			{Name: "booking-fulfillment", Handler: "index.handler", Runtime: "python3.12"},
		},
		Bot: &BotConfig{
			Name:    "booking",
			Locales: map[string]BotLocaleConfig{"en_GB": {NLUConfidenceThreshold: 0.4}},
			Aliases: map[string]BotAliasConfig{
				"live": {
					EnableConversationLogs: logsOn,
					LocaleSettings: map[string]AliasLocaleSettings{
						"en_GB": {Enabled: true, FulfillmentTarget: "booking-fulfillment"},
					},
				},
			},
		},
	}
}

func TestToDeclarationsLogGroupGuard(t *testing.T) {
	out, err := ToDeclarations(botDecls(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lgName := LogGroupName("test-center")
	lg, ok := declByID(out, compose.KindLogGroup, lgName)
	if !ok {
		t.Fatal("log group should be declared when an alias enables logs")
	}
	if lg.Name != "/connect/test-center/lex-logs" {
		t.Errorf("unexpected log group name %q", lg.Name)
	}

	bot, _ := declByID(out, compose.KindBot, "booking")
	if !hasRef(bot.Refs, compose.KindLogGroup, lgName) {
		t.Error("bot should reference the log group when logging is on")
	}
	if !hasRef(bot.Refs, compose.KindLambdaFunction, "booking-fulfillment") {
		t.Error("bot should reference its fulfillment function")
	}

	out, err = ToDeclarations(botDecls(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := declByID(out, compose.KindLogGroup, lgName); ok {
		t.Error("log group should be absent when no alias enables logs")
	}
	bot, _ = declByID(out, compose.KindBot, "booking")
	if hasRef(bot.Refs, compose.KindLogGroup, lgName) {
		t.Error("bot should not reference an absent log group")
	}
}
