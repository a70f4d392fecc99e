package controller

import (
	"github.com/lspmux/lspmux/src/lspmux/controller/proxy"
	"github.com/lspmux/lspmux/src/lspmux/controller/registry"
	"go.uber.org/fx"
)

var Module = fx.Options(
	registry.Module,
	proxy.Module,
)
