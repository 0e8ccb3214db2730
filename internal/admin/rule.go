package admin

import (
	"github.com/markand/irccd-sub002/internal/rule"
)

func ruleList(c *Commands, req Request) (Response, error) {
	list := []Response{}
	for _, r := range c.bot.Router().Rules() {
		list = append(list, describeRule(r))
	}
	return Response{"list": list}, nil
}

func ruleInfo(c *Commands, req Request) (Response, error) {
	index, err := req.Int("index", RuleInvalidIndex)
	if err != nil {
		return nil, err
	}
	r, err := c.bot.Router().Get(index)
	if err != nil {
		return nil, err
	}
	return describeRule(r), nil
}

func criteria(req Request, prefix string) (rule.Criteria, error) {
	var (
		c   rule.Criteria
		err error
	)
	if c.Servers, err = req.Strings(prefix+"servers", RuleInvalidParameter); err != nil {
		return c, err
	}
	if c.Channels, err = req.Strings(prefix+"channels", RuleInvalidParameter); err != nil {
		return c, err
	}
	if c.Origins, err = req.Strings(prefix+"origins", RuleInvalidParameter); err != nil {
		return c, err
	}
	if c.Plugins, err = req.Strings(prefix+"plugins", RuleInvalidParameter); err != nil {
		return c, err
	}
	if c.Events, err = req.Strings(prefix+"events", RuleInvalidParameter); err != nil {
		return c, err
	}
	return c, nil
}

func action(req Request) (*rule.Action, error) {
	s, err := req.OptString("action", "", RuleInvalidAction)
	if err != nil || s == "" {
		return nil, err
	}
	a, err := rule.ParseAction(s)
	if err != nil {
		return nil, newError(RuleInvalidAction, "%v", err)
	}
	return &a, nil
}

// ruleAdd appends a rule, or inserts it at "index" when given. The action
// defaults to accept like in the configuration file.
func ruleAdd(c *Commands, req Request) (Response, error) {
	crit, err := criteria(req, "")
	if err != nil {
		return nil, err
	}
	a, err := action(req)
	if err != nil {
		return nil, err
	}
	act := rule.Accept
	if a != nil {
		act = *a
	}

	r := rule.New(crit, act)
	index, err := req.OptInt("index", -1, RuleInvalidIndex)
	if err != nil {
		return nil, err
	}
	if _, ok := req["index"]; !ok {
		c.bot.Router().Add(r)
		return nil, nil
	}
	return nil, c.bot.Router().Insert(index, r)
}

// ruleEdit applies add-<set>, remove-<set> and action.
func ruleEdit(c *Commands, req Request) (Response, error) {
	index, err := req.Int("index", RuleInvalidIndex)
	if err != nil {
		return nil, err
	}

	var e rule.Edit
	if e.Add, err = criteria(req, "add-"); err != nil {
		return nil, err
	}
	if e.Remove, err = criteria(req, "remove-"); err != nil {
		return nil, err
	}
	if e.Action, err = action(req); err != nil {
		return nil, err
	}

	r, err := c.bot.Router().Edit(index, e)
	if err != nil {
		return nil, err
	}
	return describeRule(r), nil
}

func ruleRemove(c *Commands, req Request) (Response, error) {
	index, err := req.Int("index", RuleInvalidIndex)
	if err != nil {
		return nil, err
	}
	return nil, c.bot.Router().Remove(index)
}

func ruleMove(c *Commands, req Request) (Response, error) {
	from, err := req.Int("from", RuleInvalidIndex)
	if err != nil {
		return nil, err
	}
	to, err := req.Int("to", RuleInvalidIndex)
	if err != nil {
		return nil, err
	}
	return nil, c.bot.Router().Move(from, to)
}
