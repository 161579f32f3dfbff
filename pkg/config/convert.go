package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dialtone/dialtone/pkg/compose"
)

// LogGroupName derives the conversation-log group name for an instance.
func LogGroupName(instanceAlias string) string {
	return fmt.Sprintf("/connect/%s/lex-logs", instanceAlias)
}

// ToDeclarations converts loaded configuration into compose declarations,
// extracting by-name references so the composer can order provisioning.
// The conversation-log group is declared only when some bot alias turns
// logging on.
func ToDeclarations(decls *Declarations) ([]compose.Declaration, error) {
	var out []compose.Declaration

	for _, h := range decls.HoursOfOperations {
		d, err := declaration(compose.KindHoursOfOperation, h.Name, h, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	for _, qc := range decls.QuickConnects {
		var refs []compose.Ref
		switch qc.Type {
		case "QUEUE":
			refs = append(refs, compose.Ref{Kind: compose.KindQueue, Name: qc.Target})
		case "USER":
			refs = append(refs, compose.Ref{Kind: compose.KindUser, Name: qc.Target})
		}
		d, err := declaration(compose.KindQuickConnect, qc.Name, qc, refs)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	for _, q := range decls.Queues {
		refs := []compose.Ref{{Kind: compose.KindHoursOfOperation, Name: q.HoursOfOperationName}}
		for _, key := range q.QuickConnectKeys {
			refs = append(refs, compose.Ref{Kind: compose.KindQuickConnect, Name: key})
		}
		d, err := declaration(compose.KindQueue, q.Name, q, refs)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	for _, rp := range decls.RoutingProfiles {
		refs := []compose.Ref{{Kind: compose.KindQueue, Name: rp.DefaultOutboundQueueName}}
		for _, qc := range rp.QueueConfigs {
			refs = append(refs, compose.Ref{Kind: compose.KindQueue, Name: qc.QueueName})
		}
		d, err := declaration(compose.KindRoutingProfile, rp.Name, rp, refs)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	for _, sp := range decls.SecurityProfiles {
		d, err := declaration(compose.KindSecurityProfile, sp.Name, sp, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	for _, u := range decls.Users {
		refs := []compose.Ref{{Kind: compose.KindRoutingProfile, Name: u.RoutingProfileName}}
		for _, sp := range u.SecurityProfileNames {
			refs = append(refs, compose.Ref{Kind: compose.KindSecurityProfile, Name: sp})
		}
		d, err := declaration(compose.KindUser, u.Username, u, refs)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	for _, layer := range decls.LambdaLayers {
		d, err := declaration(compose.KindLambdaLayer, layer.Name, layer, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	for _, fn := range decls.LambdaFunctions {
		var refs []compose.Ref
		for _, layer := range fn.LayerNames {
			refs = append(refs, compose.Ref{Kind: compose.KindLambdaLayer, Name: layer})
		}
		d, err := declaration(compose.KindLambdaFunction, fn.Name, fn, refs)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	if decls.Bot != nil {
		botDecls, err := botDeclarations(decls.Instance.Alias, decls.Bot)
		if err != nil {
			return nil, err
		}
		out = append(out, botDecls...)
	}

	return out, nil
}

// botDeclarations produces the bot plus its conditional log group. The log
// group exists only when some alias enables conversation logging, so
// disabling logs on every alias removes the group from the plan.
func botDeclarations(instanceAlias string, bot *BotConfig) ([]compose.Declaration, error) {
	logsEnabled := false
	for _, alias := range bot.Aliases {
		if alias.EnableConversationLogs {
			logsEnabled = true
			break
		}
	}

	var out []compose.Declaration

	logGroup := compose.When(logsEnabled, func() compose.Declaration {
		name := LogGroupName(instanceAlias)
		attrs, _ := json.Marshal(map[string]string{"name": name})
		return compose.Declaration{
			Kind:       compose.KindLogGroup,
			Name:       name,
			Attributes: attrs,
		}
	})
	if lg, ok := logGroup.Get(); ok {
		out = append(out, lg)
	}

	var refs []compose.Ref
	seen := make(map[string]bool)
	for _, aliasName := range sortedKeys(bot.Aliases) {
		alias := bot.Aliases[aliasName]
		for _, locale := range sortedKeys(alias.LocaleSettings) {
			ls := alias.LocaleSettings[locale]
			if ls.FulfillmentTarget != "" && !seen[ls.FulfillmentTarget] {
				seen[ls.FulfillmentTarget] = true
				refs = append(refs, compose.Ref{Kind: compose.KindLambdaFunction, Name: ls.FulfillmentTarget})
			}
		}
	}
	if lg, ok := logGroup.Get(); ok {
		refs = append(refs, compose.Ref{Kind: compose.KindLogGroup, Name: lg.Name})
	}

	d, err := declaration(compose.KindBot, bot.Name, bot, refs)
	if err != nil {
		return nil, err
	}
	out = append(out, d)

	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func declaration(kind compose.Kind, name string, attrs interface{}, refs []compose.Ref) (compose.Declaration, error) {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return compose.Declaration{}, fmt.Errorf("failed to marshal %s %q attributes: %w", kind, name, err)
	}
	return compose.Declaration{
		Kind:       kind,
		Name:       name,
		Attributes: raw,
		Refs:       refs,
	}, nil
}
