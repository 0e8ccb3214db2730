package admin

import (
	"github.com/markand/irccd-sub002/internal/plugin"
)

func pluginList(c *Commands, req Request) (Response, error) {
	return Response{"list": c.bot.Plugins().List()}, nil
}

func pluginInfo(c *Commands, req Request) (Response, error) {
	name, err := req.String("plugin", PluginInvalidParameter)
	if err != nil {
		return nil, err
	}
	l, err := c.bot.Plugins().Get(name)
	if err != nil {
		return nil, err
	}

	var info plugin.Info
	if d, ok := l.Plugin.(plugin.Describer); ok {
		info = d.Info()
	}
	return Response{
		"name":    l.Name,
		"summary": info.Summary,
		"version": info.Version,
		"author":  info.Author,
		"license": info.License,
	}, nil
}

// pluginLoad loads a plugin with its configured options.
func pluginLoad(c *Commands, req Request) (Response, error) {
	name, err := req.String("plugin", PluginInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, c.bot.Plugins().Load(name, c.options[name])
}

func pluginUnload(c *Commands, req Request) (Response, error) {
	name, err := req.String("plugin", PluginInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, c.bot.Plugins().Unload(name)
}

func pluginReload(c *Commands, req Request) (Response, error) {
	name, err := req.String("plugin", PluginInvalidParameter)
	if err != nil {
		return nil, err
	}
	return nil, c.bot.Plugins().Reload(name)
}
