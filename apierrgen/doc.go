// Package apierrgen 为带 @ApiError 注解的枚举类型生成 API 错误描述。
//
// 枚举是底层类型为整数或字符串的具名类型，其变体是同包中声明为该类型的常量：
//
//	// @ApiError(response=true, framework=gin)
//	type AppError int
//
//	const (
//		Unknown AppError = iota
//		// @StatusCode(NotFound)
//		UserMissing
//		// @Custom("oops")
//		Broken
//		// @Pass
//		Passed
//	)
//
// 常量上可用的注解：
//   - @Pass: 显式使用变体名作为标签，状态码为 500
//   - @StatusCode(Ident): 指定 net/http 状态码，如 NotFound、StatusNotFound、NOT_FOUND
//   - @Custom("text"): 指定标签
//
// 注解名不区分大小写并忽略下划线。同类注解重复出现时后者覆盖前者。
// @Pass 与另外两种注解同时出现是错误。
//
// 处理流程为 CollectEnum -> ReadDirectives -> Fold -> Validate -> Emit，
// 任何诊断都会阻止该枚举的代码生成。
package apierrgen
