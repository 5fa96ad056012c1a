// Package dejs provides embedded JavaScript templates whose expressions may
// produce deferred values.
//
// Templates mix literal text with tags delimited by <% and %>:
//
//	<h1><%= title %></h1>
//	<% for (var i = 0; i < items.length; i++) { %>
//	  <li><%- items[i] %></li>
//	<% } %>
//
// # Basic Usage
//
//	engine := dejs.MustNew()
//	out, err := engine.Render(ctx, "Hello, <%= name %>!", &dejs.RenderOptions{
//	    Locals: map[string]any{"name": "Alice"},
//	})
//	// out: "Hello, Alice!"
//
// # Tag Syntax
//
// <% code %> runs code, <%= expr %> writes the HTML escaped value of expr,
// <%- expr %> writes it raw. Closing a tag with -%> drops the newline that
// follows it. <%# text %> is a comment and <%% writes a literal <%.
//
// # Deferred Values
//
// A local holding a *Future[any] is a Promise to template code, and an
// AsyncFunc local returns one when called. Expressions that evaluate to a
// Promise are written in place once it settles; output order always
// follows the source. A binding block waits for values before running:
//
//	<% user -> u %>Hello <%= u.name %><% <- %>
//	<% [a, b] -> [x, y] %><%= x + y %><% <- %>
//
// # Files
//
// RenderFile resolves a reference against the engine's Source, trying each
// configured extension in the directory of the referencing file and then in
// each parent. Template code may call render(ref, locals) to include a
// sub-template and inherits(ref) to render its output inside a parent,
// which receives it as contents.
//
// # Errors
//
// Parse, resolution and usage failures are cuserr errors with metadata.
// Failures raised while a template runs are *EvalError values carrying the
// filename, line and an excerpt of the source around the failing tag.
package dejs
