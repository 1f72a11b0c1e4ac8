/*
Package basket implements basket token instances.

A basket is a fungible token backed by a weighted list of component tokens.
Baskets are created through a factory message that validates the component
list and the requested module set against the extension configuration. Each
basket carries a set of attached modules, a total supply and a position
multiplier that attached modules may rescale.

Modules attach in a pending state and must initialize themselves (through
their own handlers and the Controller) before they can operate. The module
whitelist and the protocol treasury address live in the gconf configuration
of this package.
*/
package basket
