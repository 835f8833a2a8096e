// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

/*
Package duk embeds the [Duktape] JavaScript engine.

[Context] is the main entrypoint for this package.
It owns a Duktape heap and evaluates code in it.
Results come back as [Reference] values:
handles to JavaScript values that keep them alive in the heap
until [*Reference.Close] is called.
A Reference can be converted into a Go value with [*Reference.Decode]
or into a [Value] snapshot with [*Reference.Value].

# Conversions

Go values passed as arguments to [*Reference.Call] and friends
are converted to JavaScript as documented on [*Context.Wrap].
[*Reference.Decode] performs the reverse conversion.
Interfaces registered with [RegisterSum] are converted as tagged variants,
so that Go sum types survive a round trip through JavaScript.

# Errors

Values thrown by JavaScript are returned as [*JsError].
Values that cannot be converted produce a [*ConversionError].
Misuse of the API, like passing a Reference to a Context that did not create it,
causes a panic.

# Concurrency

A Context is single-threaded.
It must not be used from more than one goroutine at a time,
but separate Contexts do not share any state.

[Duktape]: https://duktape.org/
*/
package duk
