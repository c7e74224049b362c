package sieve

// Shared argument groups reused across several command definitions,
// mirroring the `comparator`, `address_part`, and `match_type` dict
// literals shared across classes in sievelib/commands.py.

var comparatorArg = ArgSpec{
	Name:     "comparator",
	Types:    []ArgType{ArgTag},
	Values:   []string{":comparator"},
	ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString}},
}

var addressPartArg = ArgSpec{
	Name:   "address-part",
	Types:  []ArgType{ArgTag},
	Values: []string{":localpart", ":domain", ":all", ":user", ":detail"},
	ExtensionValues: map[string]string{
		":user":   "subaddress",
		":detail": "subaddress",
	},
}

var matchTypeArg = ArgSpec{
	Name:   "match-type",
	Types:  []ArgType{ArgTag},
	Values: []string{":is", ":contains", ":matches", ":regex", ":count", ":value"},
	ExtensionValues: map[string]string{
		":regex": "regex",
		":count": "relational",
		":value": "relational",
	},
	// Only :count/:value/:regex carry the relational operator string
	// (e.g. :count "ge"); :is/:contains/:matches take no companion
	// argument, per sievelib/commands.py's match_type valid_for list.
	ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString}, ValidFor: []string{":count", ":value", ":regex"}},
}

var flagsExtraArg = ArgSpec{
	Name:  "flags",
	Types: []ArgType{ArgTag},
	Values: []string{":flags"},
	ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString, ArgStringList}},
}

func init() {
	r := DefaultRegistry

	// Controls.
	r.Register(CommandDef{
		Name: "require",
		Kind: KindControl,
		Args: []ArgSpec{
			{Name: "capabilities", Types: []ArgType{ArgString, ArgStringList}, Required: true},
		},
	})
	r.Register(CommandDef{
		Name:          "if",
		Kind:          KindControl,
		AcceptsBlock:  true,
		RequiresBlock: true,
		Args: []ArgSpec{
			{Name: "test", Types: []ArgType{ArgTest}, Required: true},
		},
	})
	r.Register(CommandDef{
		Name:          "elsif",
		Kind:          KindControl,
		AcceptsBlock:  true,
		RequiresBlock: true,
		MustFollow:    []string{"if", "elsif"},
		Args: []ArgSpec{
			{Name: "test", Types: []ArgType{ArgTest}, Required: true},
		},
	})
	r.Register(CommandDef{
		Name:          "else",
		Kind:          KindControl,
		AcceptsBlock:  true,
		RequiresBlock: true,
		MustFollow:    []string{"if", "elsif"},
	})
	r.Register(CommandDef{Name: "stop", Kind: KindControl})

	// Actions.
	r.Register(CommandDef{Name: "keep", Kind: KindAction, Args: []ArgSpec{flagsExtraArg}})
	r.Register(CommandDef{Name: "discard", Kind: KindAction})
	r.Register(CommandDef{
		Name: "redirect",
		Kind: KindAction,
		Args: []ArgSpec{
			{Name: "copy", Types: []ArgType{ArgTag}, Values: []string{":copy"}, Extension: "copy"},
			{Name: "address", Types: []ArgType{ArgString}, Required: true},
		},
	})
	r.Register(CommandDef{
		Name:      "fileinto",
		Kind:      KindAction,
		Extension: "fileinto",
		Args: []ArgSpec{
			{Name: "copy", Types: []ArgType{ArgTag}, Values: []string{":copy"}, Extension: "copy"},
			flagsExtraArg,
			{Name: "mailbox", Types: []ArgType{ArgString}, Required: true},
		},
	})
	rejectArgs := []ArgSpec{{Name: "reason", Types: []ArgType{ArgString}, Required: true}}
	r.Register(CommandDef{Name: "reject", Kind: KindAction, Extension: "reject", Args: rejectArgs})
	r.Register(CommandDef{Name: "ereject", Kind: KindAction, Extension: "ereject", Args: rejectArgs})
	r.Register(CommandDef{
		Name:      "vacation",
		Kind:      KindAction,
		Extension: "vacation",
		Args: []ArgSpec{
			{Name: "days", Types: []ArgType{ArgTag}, Values: []string{":days"}, ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgNumber}}},
			{Name: "seconds", Types: []ArgType{ArgTag}, Values: []string{":seconds"}, Extension: "vacation-seconds", ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgNumber}}},
			{Name: "subject", Types: []ArgType{ArgTag}, Values: []string{":subject"}, ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString}}},
			{Name: "from", Types: []ArgType{ArgTag}, Values: []string{":from"}, ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString}}},
			{Name: "addresses", Types: []ArgType{ArgTag}, Values: []string{":addresses"}, ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgStringList}}},
			{Name: "mime", Types: []ArgType{ArgTag}, Values: []string{":mime"}},
			{Name: "handle", Types: []ArgType{ArgTag}, Values: []string{":handle"}, ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString}}},
			{Name: "reason", Types: []ArgType{ArgString}, Required: true},
		},
	})
	r.Register(CommandDef{Name: "setflag", Kind: KindAction, Extension: "imap4flags", Args: []ArgSpec{
		{Name: "variable", Types: []ArgType{ArgString}},
		{Name: "flags", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "addflag", Kind: KindAction, Extension: "imap4flags", Args: []ArgSpec{
		{Name: "variable", Types: []ArgType{ArgString}},
		{Name: "flags", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "removeflag", Kind: KindAction, Extension: "imap4flags", Args: []ArgSpec{
		{Name: "variable", Types: []ArgType{ArgString}},
		{Name: "flags", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "set", Kind: KindAction, Extension: "variables", Args: []ArgSpec{
		{Name: "name", Types: []ArgType{ArgString}, Required: true},
		{Name: "value", Types: []ArgType{ArgString}, Required: true},
	}})

	// Tests.
	r.Register(CommandDef{Name: "true", Kind: KindTest})
	r.Register(CommandDef{Name: "false", Kind: KindTest})
	r.Register(CommandDef{Name: "not", Kind: KindTest, Args: []ArgSpec{
		{Name: "test", Types: []ArgType{ArgTest}, Required: true},
	}})
	r.Register(CommandDef{Name: "anyof", Kind: KindTest, Args: []ArgSpec{
		{Name: "tests", Types: []ArgType{ArgTestList}, Required: true},
	}})
	r.Register(CommandDef{Name: "allof", Kind: KindTest, Args: []ArgSpec{
		{Name: "tests", Types: []ArgType{ArgTestList}, Required: true},
	}})
	r.Register(CommandDef{Name: "exists", Kind: KindTest, Args: []ArgSpec{
		{Name: "header-names", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "size", Kind: KindTest, Args: []ArgSpec{
		{Name: "comparator", Types: []ArgType{ArgTag}, Values: []string{":over", ":under"}, Required: true},
		{Name: "limit", Types: []ArgType{ArgNumber}, Required: true},
	}})
	r.Register(CommandDef{Name: "header", Kind: KindTest, Args: []ArgSpec{
		comparatorArg,
		matchTypeArg,
		{Name: "header-names", Types: []ArgType{ArgString, ArgStringList}, Required: true},
		{Name: "key-list", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "address", Kind: KindTest, Args: []ArgSpec{
		comparatorArg,
		addressPartArg,
		matchTypeArg,
		{Name: "header-names", Types: []ArgType{ArgString, ArgStringList}, Required: true},
		{Name: "key-list", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "envelope", Kind: KindTest, Extension: "envelope", Args: []ArgSpec{
		comparatorArg,
		addressPartArg,
		matchTypeArg,
		{Name: "envelope-parts", Types: []ArgType{ArgString, ArgStringList}, Required: true},
		{Name: "key-list", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "body", Kind: KindTest, Extension: "body", Args: []ArgSpec{
		comparatorArg,
		{Name: "body-transform", Types: []ArgType{ArgTag}, Values: []string{":raw", ":content", ":text"},
			// Only :content takes a companion media-type string; :raw and
			// :text take no argument.
			ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString}, ValidFor: []string{":content"}}},
		matchTypeArg,
		{Name: "key-list", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "date", Kind: KindTest, Extension: "date", Args: []ArgSpec{
		comparatorArg,
		{Name: "zone", Types: []ArgType{ArgTag}, Values: []string{":zone", ":originalzone"},
			// :originalzone takes no argument; only :zone carries the
			// companion time-zone string.
			ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString}, ValidFor: []string{":zone"}}},
		matchTypeArg,
		{Name: "header-name", Types: []ArgType{ArgString}, Required: true},
		{Name: "date-part", Types: []ArgType{ArgString}, Required: true},
		{Name: "key-list", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "currentdate", Kind: KindTest, Extension: "date", Args: []ArgSpec{
		comparatorArg,
		{Name: "zone", Types: []ArgType{ArgTag}, Values: []string{":zone"}, ExtraArg: &ExtraArgSpec{Types: []ArgType{ArgString}}},
		matchTypeArg,
		{Name: "date-part", Types: []ArgType{ArgString}, Required: true},
		{Name: "key-list", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "hasflag", Kind: KindTest, Extension: "imap4flags", Args: []ArgSpec{
		comparatorArg,
		matchTypeArg,
		{Name: "variable-list", Types: []ArgType{ArgString, ArgStringList}},
		{Name: "list-of-flags", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "mailboxexists", Kind: KindTest, Extension: "mailbox", Args: []ArgSpec{
		{Name: "mailbox-names", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "metadata", Kind: KindTest, Extension: "mboxmetadata", Args: []ArgSpec{
		comparatorArg,
		matchTypeArg,
		{Name: "mailbox", Types: []ArgType{ArgString}, Required: true},
		{Name: "annotation", Types: []ArgType{ArgString}, Required: true},
		{Name: "key-list", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
	r.Register(CommandDef{Name: "metadataexists", Kind: KindTest, Extension: "mboxmetadata", Args: []ArgSpec{
		{Name: "mailbox", Types: []ArgType{ArgString}, Required: true},
		{Name: "annotation-names", Types: []ArgType{ArgString, ArgStringList}, Required: true},
	}})
}
